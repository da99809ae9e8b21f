package policy

import (
	"errors"

	"github.com/arloliu/tether/types"
)

// Classifier maps a failed invocation's error to a verdict.
//
// Implementations MUST be safe for concurrent use.
type Classifier interface {
	// Classify returns the verdict for err.
	//
	// Parameters:
	//   - err: The failure raised by open, the callback, or close
	//
	// Returns:
	//   - types.Verdict: The decision; types.Unclassified if not recognized
	Classify(err error) types.Verdict
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(err error) types.Verdict

// Classify calls f(err).
func (f ClassifierFunc) Classify(err error) types.Verdict {
	return f(err)
}

// VerdictFor returns the verdict for a failure kind.
//
// The table is fixed:
//
//	ConnectionAborted, Security         -> RethrowAfterAbort
//	ConnectionFaulted, ActionNotSupported,
//	ChannelTerminated, ServerTooBusy,
//	EndpointNotFound, RemoteFault,
//	Communication, Timeout              -> AbortAndReport
//	HandleDisposed                      -> ReportOnly
//	Unknown                             -> Unclassified
//
// Parameters:
//   - kind: The resolved failure kind
//
// Returns:
//   - types.Verdict: The verdict for kind
func VerdictFor(kind types.FailureKind) types.Verdict {
	switch kind {
	case types.KindConnectionAborted, types.KindSecurity:
		return types.RethrowAfterAbort
	case types.KindConnectionFaulted,
		types.KindActionNotSupported,
		types.KindChannelTerminated,
		types.KindServerTooBusy,
		types.KindEndpointNotFound,
		types.KindRemoteFault,
		types.KindCommunication,
		types.KindTimeout:
		return types.AbortAndReport
	case types.KindHandleDisposed:
		return types.ReportOnly
	default:
		return types.Unclassified
	}
}

// DefaultClassifier resolves failure kinds and applies VerdictFor.
//
// Kind resolution tries, in order: an explicit *types.Failure in the error
// chain, each registered translator, then types.KindOf's generic rules.
type DefaultClassifier struct {
	translators []types.FailureTranslator
}

// Compile-time assertion that DefaultClassifier implements Classifier.
var _ Classifier = (*DefaultClassifier)(nil)

// ClassifierOption configures a DefaultClassifier.
type ClassifierOption func(*DefaultClassifier)

// WithTranslator adds a transport-specific failure translator.
//
// Translators are consulted in the order they were added. A nil translator
// is ignored.
//
// Parameters:
//   - t: The translator to add
//
// Returns:
//   - ClassifierOption: Configuration option
func WithTranslator(t types.FailureTranslator) ClassifierOption {
	return func(c *DefaultClassifier) {
		if t != nil {
			c.translators = append(c.translators, t)
		}
	}
}

// NewDefaultClassifier creates a classifier with the fixed verdict table.
//
// Parameters:
//   - opts: Optional translators
//
// Returns:
//   - *DefaultClassifier: A new classifier
func NewDefaultClassifier(opts ...ClassifierOption) *DefaultClassifier {
	c := &DefaultClassifier{}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AddTranslator appends a translator after construction.
//
// This is used by the wrapper to propagate a factory's translator. It must
// be called before the classifier is shared across goroutines.
func (c *DefaultClassifier) AddTranslator(t types.FailureTranslator) {
	if t != nil {
		c.translators = append(c.translators, t)
	}
}

// Kind resolves the failure kind for err.
func (c *DefaultClassifier) Kind(err error) types.FailureKind {
	if err == nil {
		return types.KindUnknown
	}

	var f *types.Failure
	if errors.As(err, &f) && f.Kind != types.KindUnknown {
		return f.Kind
	}

	for _, t := range c.translators {
		if kind, ok := t.TranslateFailure(err); ok {
			return kind
		}
	}

	return types.KindOf(err)
}

// Classify implements Classifier.
func (c *DefaultClassifier) Classify(err error) types.Verdict {
	return VerdictFor(c.Kind(err))
}

// TranslatorFunc adapts a function to types.FailureTranslator.
type TranslatorFunc func(err error) (types.FailureKind, bool)

// TranslateFailure calls f(err).
func (f TranslatorFunc) TranslateFailure(err error) (types.FailureKind, bool) {
	return f(err)
}
