package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Kind is the closed set of failure classes a gateway call can report.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindNotFound
	KindValidation
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Error is returned by every failed gateway call.
type Error struct {
	Op     string
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of a gateway error. ok is false for nil or foreign errors.
func KindOf(err error) (Kind, bool) {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind, true
	}
	return 0, false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func classify(op string, resp *resty.Response, err error) *Error {
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}
	if resp.IsSuccess() {
		return nil
	}

	status := resp.StatusCode()
	body := strings.TrimSpace(resp.String())
	if body == "" {
		body = http.StatusText(status)
	}
	cause := errors.New(body)

	switch status {
	case http.StatusNotFound:
		return &Error{Op: op, Kind: KindNotFound, Status: status, Err: cause}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &Error{Op: op, Kind: KindValidation, Status: status, Err: cause}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Error{Op: op, Kind: KindUnauthorized, Status: status, Err: cause}
	default:
		return &Error{Op: op, Kind: KindTransport, Status: status, Err: cause}
	}
}
