package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
)

// Upstream error kinds. The HTTP boundary maps these to status codes; the
// core only classifies and propagates.
var (
	ErrAuth      = errors.New("assistant: invalid api key")
	ErrQuota     = errors.New("assistant: insufficient quota")
	ErrRateLimit = errors.New("assistant: rate limit exceeded")
	ErrTimeout   = errors.New("assistant: request timeout")
)

// RunError reports a run the remote API marked as failed (or another
// terminal failure state). Reason carries the remote-reported detail.
type RunError struct {
	RunID  string
	Status string
	Reason string
}

func (e *RunError) Error() string {
	reason := strings.TrimSpace(e.Reason)
	if reason == "" {
		reason = "no failure detail reported"
	}
	return fmt.Sprintf("assistant: run %s %s: %s", e.RunID, e.Status, reason)
}

// classify wraps upstream API failures with the matching error kind.
// Unrecognized failures pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var apierr *openai.Error
	if !errors.As(err, &apierr) {
		return err
	}

	switch apierr.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", ErrAuth, err)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %v", ErrQuota, err)
	case http.StatusTooManyRequests:
		// OpenAI reports exhausted quota as a 429 with a distinct code.
		if strings.Contains(apierr.Code, "insufficient_quota") {
			return fmt.Errorf("%w: %v", ErrQuota, err)
		}
		return fmt.Errorf("%w: %v", ErrRateLimit, err)
	case http.StatusRequestTimeout:
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
