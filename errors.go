package goEventHub

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport is the sentinel kind for network, timeout and payload decode failures.
	ErrTransport = errors.New("backend transport failure")
	// ErrAuth is the sentinel kind for a rejected token validation.
	ErrAuth = errors.New("token validation rejected")
	// ErrBusiness is the sentinel kind for non-200 answers outside token validation.
	ErrBusiness = errors.New("backend rejected request")
	// ErrStoreNotReady is returned when an action runs on a nil or closed Store.
	ErrStoreNotReady = errors.New("store not initialized")
	// ErrNoAccessToken is returned when the token slot holds no access token.
	ErrNoAccessToken = errors.New("no access token stored")
	// ErrDemoIndexOutOfRange is returned by SetDemoItemColorStrict for an index outside the demo list.
	ErrDemoIndexOutOfRange = errors.New("demo index out of range")
	// ErrUnknownFeedTab is returned for a tab key that is not one of the feed tabs.
	ErrUnknownFeedTab = errors.New("unknown feed tab")
	// ErrPlaceNotFound is returned when a picked place carries no geometry.
	ErrPlaceNotFound = errors.New("place not found")
	// ErrInvalidCoordinates is returned when a picked location is outside lat/lng ranges.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrRecoveryThrottled is returned when an address spent its recovery request budget.
	ErrRecoveryThrottled = errors.New("too many recovery requests")
	// ErrTokenStoreUnavailable wraps token slot backend failures.
	ErrTokenStoreUnavailable = errors.New("token store unavailable")
)

// ErrorKind classifies why an action failed.
type ErrorKind uint8

const (
	// KindNone marks a successful outcome.
	KindNone ErrorKind = iota
	// KindTransport covers DNS, connection, timeout and malformed JSON failures.
	KindTransport
	// KindAuth covers a non-200 answer from the token validation endpoint.
	KindAuth
	// KindBusiness covers a non-200 answer from any other endpoint.
	KindBusiness
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindBusiness:
		return "business"
	default:
		return "unknown"
	}
}

// MarshalText encodes k by name, so JSON and log output read "business"
// rather than 3.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindAuth:
		return ErrAuth
	case KindBusiness:
		return ErrBusiness
	default:
		return nil
	}
}

// ActionError is the failure half of every action Result.
//
// errors.Is matches the sentinel of its Kind (ErrTransport, ErrAuth, ErrBusiness)
// as well as the wrapped cause.
type ActionError struct {
	Action    string
	Kind      ErrorKind
	Status    int
	Message   string
	RequestID string
	Err       error
}

func (e *ActionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" && e.Status != 0 {
		msg = http.StatusText(e.Status)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s failure (status %d): %s", e.Action, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s failure: %s", e.Action, e.Kind, msg)
}

func (e *ActionError) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// AuthValidationError is what ValidateToken returns when the backend does not
// confirm the stored token, or the request never completes.
type AuthValidationError struct {
	Status  int
	Message string
	Cause   *ActionError
}

func (e *AuthValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "token validation failed: " + e.Message
}

func (e *AuthValidationError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}

func newAuthValidationError(cause *ActionError) *AuthValidationError {
	out := &AuthValidationError{Cause: cause}
	if cause == nil {
		out.Message = "unknown error"
		return out
	}
	out.Status = cause.Status
	out.Message = cause.Message
	if out.Message == "" && cause.Err != nil {
		out.Message = cause.Err.Error()
	}
	if out.Message == "" && cause.Status != 0 {
		out.Message = http.StatusText(cause.Status)
	}
	return out
}
