package backoff

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	goopenai "github.com/sashabaranov/go-openai"
)

// Delay is an exponential backoff starting at 200ms and capped at 5s.
func Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second || d <= 0 {
		d = 5 * time.Second
	}
	return d
}

// Retryable reports whether err from an OpenAI-compatible API is a rate limit or a server-side failure.
func Retryable(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
