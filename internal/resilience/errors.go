// Package resilience classifies upstream failures and retries the
// connectivity-class ones with exponential backoff. The extraction chain
// and market-data client both lean on it: a retryable failure means "the
// provider was unreachable, try again or fall through", while anything
// else is a real answer and must surface immediately.
package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ProviderUnavailableError marks a connectivity-class failure: the named
// upstream could not be reached, timed out, or answered with a retryable
// HTTP status. The extraction chain advances past these; all other errors
// stop it.
type ProviderUnavailableError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderUnavailableError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s unavailable (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as a connectivity-class failure of the named
// provider. Pass statusCode 0 when no HTTP response was received.
func Unavailable(provider string, statusCode int, err error) error {
	return &ProviderUnavailableError{Provider: provider, StatusCode: statusCode, Err: err}
}

// InvalidCredentialsError marks an auth-rejected call (401/403). Retrying
// the same key cannot succeed, so it is never retried on the provider that
// produced it, but the extraction chain still advances: another provider
// with valid credentials can answer.
type InvalidCredentialsError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("%s rejected credentials (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *InvalidCredentialsError) Unwrap() error {
	return e.Err
}

// InvalidAuth wraps err as an auth rejection by the named provider.
func InvalidAuth(provider string, statusCode int, err error) error {
	return &InvalidCredentialsError{Provider: provider, StatusCode: statusCode, Err: err}
}

// IsInvalidAuth reports whether err carries an InvalidCredentialsError.
func IsInvalidAuth(err error) bool {
	var invalid *InvalidCredentialsError
	return errors.As(err, &invalid)
}

// AuthStatus reports whether an HTTP status code means the credentials
// were rejected.
func AuthStatus(code int) bool {
	return code == 401 || code == 403
}

// AdvancesChain reports whether err should move a provider chain to its
// next entry: connectivity-class failures and auth rejections both leave
// the next provider able to answer.
func AdvancesChain(err error) bool {
	return IsRetryable(err) || IsInvalidAuth(err)
}

// connectivityFragments are substrings that identify network-layer trouble
// in errors already flattened to strings by HTTP client wrappers.
var connectivityFragments = []string{
	"connection reset by peer",
	"connection refused",
	"broken pipe",
	"no such host",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"unexpected eof",
	"server closed idle connection",
}

// IsRetryable reports whether err represents a connectivity-class failure:
// an explicit ProviderUnavailableError anywhere in the chain, a network
// timeout, a refused or reset connection, or a known network-layer message
// from a client that flattened the original error.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var unavailable *ProviderUnavailableError
	if errors.As(err, &unavailable) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE):
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range connectivityFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

// RetryableStatus reports whether an HTTP status code indicates a failure
// worth retrying. Client errors other than timeout and throttling are
// deliberate answers and are excluded.
func RetryableStatus(code int) bool {
	switch code {
	case 408, 429:
		return true
	default:
		return code >= 500 && code <= 599
	}
}
