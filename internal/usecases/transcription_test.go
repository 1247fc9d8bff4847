package usecases

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTranscriptionError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"nil error", nil, 200},
		{"timeout", errors.New("request timeout after 60s"), 408},
		{"context deadline", errors.New("context deadline exceeded"), 408},
		{"rate limit", errors.New("429: rate limit reached for requests"), 429},
		{"insufficient quota", errors.New("insufficient_quota: please check your plan"), 429},
		{"too many requests", errors.New("too many requests"), 429},
		{"bare 429 status", errors.New("transcription status 429: try later"), 429},
		{"billing", errors.New("billing hard limit has been reached"), 402},
		{"payment", errors.New("payment required"), 402},
		{"bad api key", errors.New("incorrect api key provided"), 401},
		{"unauthorized", errors.New("unauthorized"), 401},
		{"forbidden", errors.New("forbidden"), 403},
		{"permission", errors.New("permission denied for model"), 403},
		{"file too large", errors.New("file too large: 30000000 bytes"), 413},
		{"bad format", errors.New("invalid file format"), 400},
		{"unsupported", errors.New("unsupported audio codec"), 400},
		{"connection refused", errors.New("dial tcp: connection refused"), 503},
		{"dns failure", errors.New("lookup api.example.com: no such host"), 503},
		{"bad gateway", errors.New("transcription status 502: bad gateway"), 503},
		{"unknown", errors.New("something odd happened"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := ClassifyTranscriptionError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			if tt.err != nil {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestIsRetryableTranscriptionError(t *testing.T) {
	assert.True(t, IsRetryableTranscriptionError(errors.New("request timeout")))
	assert.True(t, IsRetryableTranscriptionError(errors.New("connection reset by peer")))
	assert.True(t, IsRetryableTranscriptionError(errors.New("rate limit reached")))
	assert.True(t, IsRetryableTranscriptionError(errors.New("server overloaded")))

	assert.False(t, IsRetryableTranscriptionError(nil))
	assert.False(t, IsRetryableTranscriptionError(errors.New("incorrect api key provided")))
	assert.False(t, IsRetryableTranscriptionError(errors.New("invalid file format")))
}

func newTestTranscription() (*TranscriptionUsecase, *[]time.Duration) {
	var delays []time.Duration
	u := &TranscriptionUsecase{
		maxAttempts: 3,
		baseDelay:   100 * time.Millisecond,
		sleep:       func(d time.Duration) { delays = append(delays, d) },
	}
	return u, &delays
}

func TestRetryWithBackoffRetryable(t *testing.T) {
	u, delays := newTestTranscription()

	calls := 0
	err := u.retryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("request timeout")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	// Delay doubles between attempts, and there is no sleep after the last.
	require.Len(t, *delays, 2)
	assert.Equal(t, 100*time.Millisecond, (*delays)[0])
	assert.Equal(t, 200*time.Millisecond, (*delays)[1])
}

func TestRetryWithBackoffNonRetryable(t *testing.T) {
	u, delays := newTestTranscription()

	calls := 0
	err := u.retryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("incorrect api key provided")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "non-retryable errors must fail on the first attempt")
	assert.Empty(t, *delays)
}

func TestRetryWithBackoffEventualSuccess(t *testing.T) {
	u, _ := newTestTranscription()

	calls := 0
	err := u.retryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("attempt %d: connection refused", calls)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffCancelledContext(t *testing.T) {
	u, _ := newTestTranscription()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := u.retryWithBackoff(ctx, func() error {
		return errors.New("request timeout")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
