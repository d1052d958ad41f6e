package repo

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors tag submission failures with a kind. Wrap builds on them so
// errors.Is classification keeps working through wrapping.
var (
	// ErrConnectivity marks transport-level failures: DNS, refused
	// connections, timeouts, broken transfers.
	ErrConnectivity = errors.New("connectivity failure")
	// ErrLocalIO marks failures reading the package artifact on this side.
	ErrLocalIO = errors.New("local i/o failure")
	// ErrRejected marks responses where the repository refused the package.
	ErrRejected = errors.New("repository rejected submission")
)

// FailureKind is the retry-relevant classification of a submission failure.
type FailureKind string

const (
	FailureConnectivity FailureKind = "connectivity"
	FailureLocalIO      FailureKind = "local_io"
	FailureRejected     FailureKind = "rejected"
	FailureUnknown      FailureKind = "unknown"
)

// ParseFailureKind maps a stored string back to a FailureKind.
func ParseFailureKind(value string) (FailureKind, bool) {
	switch FailureKind(strings.TrimSpace(strings.ToLower(value))) {
	case FailureConnectivity:
		return FailureConnectivity, true
	case FailureLocalIO:
		return FailureLocalIO, true
	case FailureRejected:
		return FailureRejected, true
	case FailureUnknown:
		return FailureUnknown, true
	default:
		return FailureUnknown, false
	}
}

// Wrap tags err with the provided sentinel marker plus message context.
func Wrap(marker error, message string, err error) error {
	if marker == nil {
		marker = ErrConnectivity
	}
	message = strings.TrimSpace(message)
	if err != nil {
		if message != "" {
			return fmt.Errorf("%w: %s: %w", marker, message, err)
		}
		return fmt.Errorf("%w: %w", marker, err)
	}
	if message == "" {
		return marker
	}
	return fmt.Errorf("%w: %s", marker, message)
}

// ClassifyFailure maps a submission error to its failure kind.
func ClassifyFailure(err error) FailureKind {
	switch {
	case errors.Is(err, ErrConnectivity):
		return FailureConnectivity
	case errors.Is(err, ErrLocalIO):
		return FailureLocalIO
	case errors.Is(err, ErrRejected):
		return FailureRejected
	default:
		return FailureUnknown
	}
}

// IsConnectivity reports whether err is a connectivity failure.
func IsConnectivity(err error) bool { return errors.Is(err, ErrConnectivity) }

// IsLocalIO reports whether err is a local I/O failure.
func IsLocalIO(err error) bool { return errors.Is(err, ErrLocalIO) }

// IsRejected reports whether err is a server rejection.
func IsRejected(err error) bool { return errors.Is(err, ErrRejected) }
