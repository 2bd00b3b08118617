package httpx

import (
	"time"

	errs "socialcrawl/pkg/errors"
)

// Kind classifies the outcome of a single HTTP attempt
type Kind int

const (
	Success Kind = iota
	AuthExpired
	RateLimited
	TransientServerError
	PermanentClientError
	NetworkError
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case AuthExpired:
		return "auth_expired"
	case RateLimited:
		return "rate_limited"
	case TransientServerError:
		return "server_error"
	case PermanentClientError:
		return "client_error"
	case NetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// ErrorType maps the disposition onto the shared error taxonomy
func (k Kind) ErrorType() errs.ErrorType {
	switch k {
	case AuthExpired:
		return errs.ErrorTypeAuthExpired
	case RateLimited:
		return errs.ErrorTypeRateLimit
	case TransientServerError:
		return errs.ErrorTypeServerError
	case PermanentClientError:
		return errs.ErrorTypeClientError
	case NetworkError:
		return errs.ErrorTypeNetwork
	default:
		return errs.ErrorTypeUnknown
	}
}

// Disposition is the classified result of one attempt. Body holds the full
// payload on Success and the raw response body otherwise.
type Disposition struct {
	Kind       Kind
	Status     int
	Body       []byte
	RetryAfter time.Duration
	URL        string
	Err        error
}

// OK reports whether the attempt succeeded
func (d Disposition) OK() bool {
	return d.Kind == Success
}

// Snippet returns the body truncated for diagnostics
func (d Disposition) Snippet() string {
	return errs.Truncate(d.Body, errs.MaxBodySnippet)
}

// AsError converts a failed disposition into a typed error
func (d Disposition) AsError(message string) *errs.Error {
	if message == "" {
		message = d.Kind.String()
	}
	return &errs.Error{
		Type:    d.Kind.ErrorType(),
		Message: message,
		Code:    d.Status,
		Body:    d.Snippet(),
		URL:     d.URL,
		Err:     d.Err,
	}
}
