package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"
	"zapdesk/internal/infrastructure"
	"zapdesk/internal/repository"

	"go.uber.org/zap"
)

// maxAudioSize caps uploads before they ever reach the vendor (25 MB, the
// transcription API's own limit).
const maxAudioSize = 25 << 20

// TranscriptionUsecase turns WhatsApp voice notes into text through the AI
// provider, with bounded retries around transient vendor failures.
type TranscriptionUsecase struct {
	client *infrastructure.OpenAIClient
	usage  *repository.UsageRepository
	log    *zap.Logger

	maxAttempts int
	baseDelay   time.Duration
	sleep       func(time.Duration) // replaceable in tests
}

func NewTranscriptionUsecase(client *infrastructure.OpenAIClient, usage *repository.UsageRepository, log *zap.Logger) *TranscriptionUsecase {
	return &TranscriptionUsecase{
		client:      client,
		usage:       usage,
		log:         log,
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
		sleep:       time.Sleep,
	}
}

// Transcribe runs the audio through the provider. On failure the returned
// status and message come from ClassifyTranscriptionError, ready to be sent
// as the HTTP response.
func (u *TranscriptionUsecase) Transcribe(ctx context.Context, userID int, filename string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio file")
	}
	if len(audio) > maxAudioSize {
		return "", fmt.Errorf("file too large: %d bytes", len(audio))
	}

	var text string
	err := u.retryWithBackoff(ctx, func() error {
		var err error
		text, err = u.client.Transcribe(ctx, filename, audio)
		return err
	})
	if err != nil {
		return "", err
	}

	u.usage.RecordAICall(userID, 0)
	return text, nil
}

// CheckAccount verifies the provider key is live (models listing).
func (u *TranscriptionUsecase) CheckAccount(ctx context.Context) error {
	return u.client.CheckAccount(ctx)
}

// retryWithBackoff re-invokes fn up to maxAttempts times for retryable
// errors, doubling the delay each attempt. Non-retryable errors return
// immediately.
func (u *TranscriptionUsecase) retryWithBackoff(ctx context.Context, fn func() error) error {
	delay := u.baseDelay
	var lastErr error

	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRetryableTranscriptionError(lastErr) {
			return lastErr
		}
		if attempt == u.maxAttempts {
			break
		}
		if u.log != nil {
			u.log.Warn("transcription attempt failed, retrying",
				zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(lastErr))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		u.sleep(delay)
		delay *= 2
	}
	return lastErr
}

// IsRetryableTranscriptionError reports whether the failure is transient
// (connection or timeout signatures, throttling, upstream overload).
func IsRetryableTranscriptionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range []string{
		"timeout",
		"deadline exceeded",
		"connection refused",
		"connection reset",
		"no such host",
		"unexpected eof",
		"rate limit",
		"too many requests",
		"service unavailable",
		"bad gateway",
		"overloaded",
	} {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// ClassifyTranscriptionError maps a transcription failure to the HTTP
// status and user-facing message for the `{"error": ...}` envelope. Pure
// function of the error message.
func ClassifyTranscriptionError(err error) (int, string) {
	if err == nil {
		return 200, ""
	}
	msg := strings.ToLower(err.Error())

	switch {
	case contains(msg, "file too large", "maximum content size", "request entity too large"):
		return 413, "Arquivo de áudio muito grande. O limite é 25 MB."
	case contains(msg, "timeout", "deadline exceeded"):
		return 408, "A transcrição demorou demais. Tente novamente."
	case contains(msg, "insufficient_quota", "rate limit", "too many requests", "status 429"):
		return 429, "Limite de uso da IA atingido. Aguarde e tente novamente."
	case contains(msg, "payment", "billing", "quota_exceeded"):
		return 402, "Problema de cobrança na conta de IA. Verifique o plano do provedor."
	case contains(msg, "invalid api key", "incorrect api key", "unauthorized", "status 401"):
		return 401, "Chave da API de IA inválida ou ausente."
	case contains(msg, "forbidden", "permission", "status 403"):
		return 403, "A chave da API não tem permissão para transcrição."
	case contains(msg, "invalid file format", "unsupported", "could not decode", "status 400"):
		return 400, "Formato de áudio não suportado."
	case contains(msg, "connection refused", "connection reset", "no such host", "service unavailable", "bad gateway", "overloaded"):
		return 503, "Serviço de IA indisponível no momento. Tente novamente em instantes."
	default:
		return 500, "Falha ao transcrever o áudio."
	}
}

func contains(msg string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
