package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrUnsupportedCategory = errors.New("unsupported category")
	ErrMalformedCorpus     = errors.New("malformed corpus")
	ErrStoreUnavailable    = errors.New("vector store unavailable")
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrMalformedResponse   = errors.New("malformed upstream response")
	ErrMissingField        = errors.New("missing template field")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
)

const KindInternal = "internal"

var kinds = []struct {
	err       error
	kind      string
	retriable bool
}{
	{ErrUnsupportedCategory, "unsupported_category", false},
	{ErrMalformedCorpus, "malformed_corpus", false},
	{ErrStoreUnavailable, "store_unavailable", true},
	{ErrUpstreamTimeout, "upstream_timeout", true},
	{ErrMalformedResponse, "malformed_response", false},
	{ErrMissingField, "missing_field", false},
	{ErrUpstreamUnavailable, "upstream_unavailable", true},
	{ErrInvalidInput, "invalid_input", false},
	{ErrNotFound, "not_found", false},
}

// Kind returns the stable machine name of the first taxonomy error found in err's chain.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsRetriable reports whether the caller may retry the failed operation.
func IsRetriable(err error) bool {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.retriable
		}
	}
	return false
}

// IsTimeout reports whether err comes from an expired deadline or a network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrUpstreamTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// FromContext maps an expired deadline or a network timeout to
// ErrUpstreamTimeout and returns other errors unchanged.
func FromContext(err error) error {
	if err == nil || errors.Is(err, ErrUpstreamTimeout) {
		return err
	}
	if IsTimeout(err) {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	return err
}

// Failure is the caller-facing shape of a failed request.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func NewFailure(err error) Failure {
	return Failure{Kind: Kind(err), Message: err.Error()}
}
