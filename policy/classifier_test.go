package policy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/arloliu/tether/types"
	"github.com/stretchr/testify/require"
)

func TestVerdictTable(t *testing.T) {
	tests := []struct {
		kind types.FailureKind
		want types.Verdict
	}{
		{types.KindConnectionAborted, types.RethrowAfterAbort},
		{types.KindConnectionFaulted, types.AbortAndReport},
		{types.KindSecurity, types.RethrowAfterAbort},
		{types.KindActionNotSupported, types.AbortAndReport},
		{types.KindChannelTerminated, types.AbortAndReport},
		{types.KindServerTooBusy, types.AbortAndReport},
		{types.KindEndpointNotFound, types.AbortAndReport},
		{types.KindRemoteFault, types.AbortAndReport},
		{types.KindCommunication, types.AbortAndReport},
		{types.KindTimeout, types.AbortAndReport},
		{types.KindHandleDisposed, types.ReportOnly},
		{types.KindUnknown, types.Unclassified},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			require.Equal(t, tt.want, VerdictFor(tt.kind))
		})
	}
}

func TestDefaultClassifier(t *testing.T) {
	c := NewDefaultClassifier()

	require.Equal(t, types.RethrowAfterAbort, c.Classify(types.ErrConnectionAborted))
	require.Equal(t, types.RethrowAfterAbort, c.Classify(fmt.Errorf("open: %w", types.ErrSecurity)))
	require.Equal(t, types.AbortAndReport, c.Classify(&types.RemoteFault{Reason: "Error"}))
	require.Equal(t, types.AbortAndReport, c.Classify(context.DeadlineExceeded))
	require.Equal(t, types.AbortAndReport, c.Classify(io.EOF))
	require.Equal(t, types.ReportOnly, c.Classify(types.ErrHandleDisposed))
	require.Equal(t, types.Unclassified, c.Classify(errors.New("application bug")))
	require.Equal(t, types.Unclassified, c.Classify(context.Canceled))
	require.Equal(t, types.Unclassified, c.Classify(nil))
}

func TestDefaultClassifierTranslatorOrder(t *testing.T) {
	errQuota := errors.New("quota exceeded")

	first := TranslatorFunc(func(err error) (types.FailureKind, bool) {
		if errors.Is(err, errQuota) {
			return types.KindServerTooBusy, true
		}
		return types.KindUnknown, false
	})
	second := TranslatorFunc(func(err error) (types.FailureKind, bool) {
		return types.KindSecurity, true
	})

	c := NewDefaultClassifier(WithTranslator(first), WithTranslator(nil))
	c.AddTranslator(second)

	require.Equal(t, types.KindServerTooBusy, c.Kind(errQuota))
	require.Equal(t, types.KindSecurity, c.Kind(errors.New("anything")))

	t.Run("explicit failure wins over translators", func(t *testing.T) {
		err := types.NewFailure(types.KindTimeout, "call", errQuota)
		require.Equal(t, types.KindTimeout, c.Kind(err))
		require.Equal(t, types.AbortAndReport, c.Classify(err))
	})
}

func TestClassifierFunc(t *testing.T) {
	var c Classifier = ClassifierFunc(func(error) types.Verdict { return types.ReportOnly })
	require.Equal(t, types.ReportOnly, c.Classify(errors.New("x")))
}
