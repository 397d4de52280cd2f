package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Dependency & Timeout Errors
var (
	ErrServiceUnreachable = errors.New("service unreachable")
	ErrContextDeadline    = errors.New("context deadline exceeded")
)

// NewServiceUnreachableError reports an outbound call that failed or was refused.
func NewServiceUnreachableError(service string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrServiceUnreachable,
		Details:    fmt.Sprintf("Service %s is unreachable", service),
		Cause:      cause,
		Field:      "service",
	}
}

func NewContextDeadlineError(operation string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusGatewayTimeout,
		err:        ErrContextDeadline,
		Details:    fmt.Sprintf("Context deadline exceeded for %s", operation),
		Cause:      cause,
		Field:      "timeout",
	}
}

func IsServiceUnreachableError(err error) bool {
	return errors.Is(err, ErrServiceUnreachable)
}

func IsContextDeadlineError(err error) bool {
	return errors.Is(err, ErrContextDeadline)
}
