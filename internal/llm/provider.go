package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/yorozuya-cybersecurity/vulnbrief/internal/fault"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/schema"
)

// Completer sends one prompt to a chat-completion service and returns the
// first completion. Implementations make exactly one request per call.
type Completer interface {
	Complete(ctx context.Context, prompt string) (schema.Completion, error)
	Name() string
	Model() string
}

const opComplete = "request completion"

var errMissingAPIKey = errors.New("API key is not set")

// classifyTransport tags an error returned by the HTTP layer.
func classifyTransport(err error) error {
	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &urlErr), errors.As(err, &netErr):
		return fault.New(fault.KindNetwork, opComplete, err)
	default:
		return fault.New(fault.KindService, opComplete, err)
	}
}

// kindForStatus maps an HTTP status returned by the service to a fault kind.
func kindForStatus(status int) fault.Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fault.KindAuthentication
	case status == http.StatusTooManyRequests:
		return fault.KindRateLimit
	default:
		return fault.KindService
	}
}
