package serverclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeDialer lets tests control Connect's outcome without a real network
// dial, by substituting the dial function normally owned by Client.Connect.
type fakeDialer struct {
	attempts int
	failures int // number of leading attempts that fail
	fatal    bool
}

func (f *fakeDialer) connect(context.Context) error {
	f.attempts++
	if f.attempts <= f.failures {
		if f.fatal {
			return &ProtocolError{Err: errors.New("bad credentials")}
		}
		return &ConnectionError{Err: errors.New("refused")}
	}
	return nil
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	fd := &fakeDialer{failures: 2}
	cfg := RetryConfig{MaxRetries: 3, Delay: time.Millisecond}
	err := connectWithRetry(context.Background(), fd.connect, cfg)
	require.NoError(t, err)
	require.Equal(t, 3, fd.attempts)
}

func TestRetryExhaustsAndReturnsLastError(t *testing.T) {
	fd := &fakeDialer{failures: 5}
	cfg := RetryConfig{MaxRetries: 2, Delay: time.Millisecond}
	err := connectWithRetry(context.Background(), fd.connect, cfg)
	require.Error(t, err)
	require.Equal(t, 2, fd.attempts)
}

func TestRetryShortCircuitsOnFatalError(t *testing.T) {
	fd := &fakeDialer{failures: 5, fatal: true}
	cfg := RetryConfig{MaxRetries: 3, Delay: time.Millisecond}
	err := connectWithRetry(context.Background(), fd.connect, cfg)
	require.Error(t, err)
	require.Equal(t, 1, fd.attempts)
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestClassifyServerError(t *testing.T) {
	require.Equal(t, SeverityFatal, ClassifyServerError(CodeNoBackendServerAvailable).Severity)
	require.Equal(t, SeverityFatal, ClassifyServerError(CodeFailedCreateModel).Severity)
	require.Equal(t, SeverityFatal, ClassifyServerError(CodeInvalidPersonaIDConfiguration).Severity)
	require.Equal(t, SeveritySurvivable, ClassifyServerError(CodeFrameSizeTooBig).Severity)
	require.Equal(t, SeveritySurvivable, ClassifyServerError(CodeInvalidInteractionID).Severity)
	require.Equal(t, SeveritySurvivable, ClassifyServerError("SOMETHING_UNKNOWN").Severity)
}
