package domain

import (
	"errors"
	"fmt"
)

// TransportErrorKind classifies why a service request failed.
type TransportErrorKind string

const (
	KindNetwork TransportErrorKind = "network"
	KindStatus  TransportErrorKind = "status"
	KindDecode  TransportErrorKind = "decode"
)

// TransportError is returned for any failed detection service request.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Kind       TransportErrorKind
	Err        error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Err != nil {
			return fmt.Sprintf("%s %s: unexpected status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
		}
		return fmt.Sprintf("%s %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
	case KindDecode:
		return fmt.Sprintf("%s %s: malformed response: %v", e.Op, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// AsTransportError returns the first TransportError in err's chain.
func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
