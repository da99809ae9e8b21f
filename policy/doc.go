// Package policy provides failure classification for tether invocations.
//
// # Classifiers
//
// A classifier turns the error raised by an invocation into a verdict that
// drives the runner's terminal action. All classifiers implement the
// Classifier interface:
//
//	type Classifier interface {
//	    Classify(err error) types.Verdict
//	}
//
// [DefaultClassifier] resolves a types.FailureKind and applies the fixed
// table in [VerdictFor]. Transports contribute their own error mapping via
// types.FailureTranslator; the wrapper registers a factory's translator
// automatically.
//
// Example:
//
//	classifier := policy.NewDefaultClassifier(
//	    policy.WithTranslator(policy.TranslatorFunc(func(err error) (types.FailureKind, bool) {
//	        if errors.Is(err, errQuotaExceeded) {
//	            return types.KindServerTooBusy, true
//	        }
//	        return types.KindUnknown, false
//	    })),
//	)
//	w, _ := tether.New(factory, tether.WithClassifier(classifier))
//
// Custom classifiers can be supplied with [ClassifierFunc]. Returning
// types.Unclassified propagates the failure without reporting it.
package policy
