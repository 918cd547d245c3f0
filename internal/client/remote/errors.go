package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/api/googleapi"
)

var (
	ErrAuth        = errors.New("remote authentication failed")
	ErrPermission  = errors.New("remote permission denied")
	ErrSchema      = errors.New("remote table not found")
	ErrUnavailable = errors.New("remote service unavailable")
	ErrUnknown     = errors.New("remote request failed")
)

// Error is a classified remote failure.
type Error struct {
	// Kind is one of the package sentinels.
	Kind error
	// Code is the HTTP status, 0 for transport failures.
	Code    int
	Status  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	if e.Code != 0 {
		return fmt.Sprintf("%v: %d %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

type statusReply struct {
	Error struct {
		Status string `json:"status"`
	} `json:"error"`
}

func apiStatus(e *googleapi.Error) string {
	var reply statusReply
	if e.Body != "" && json.Unmarshal([]byte(e.Body), &reply) == nil && reply.Error.Status != "" {
		return reply.Error.Status
	}
	for _, status := range []string{"PERMISSION_DENIED", "UNAUTHENTICATED"} {
		if strings.Contains(e.Body, status) {
			return status
		}
	}
	return ""
}

// mapError classifies err into an *Error. A nil err stays nil.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var re *Error
	if errors.As(err, &re) {
		return re
	}

	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return classifyAPI(ge)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrUnavailable, Message: err.Error(), Err: err}
	}

	var ue *url.Error
	var ne net.Error
	if errors.As(err, &ue) || errors.As(err, &ne) {
		return &Error{Kind: ErrUnavailable, Message: err.Error(), Err: err}
	}

	return &Error{Kind: ErrUnknown, Message: err.Error(), Err: err}
}

func classifyAPI(ge *googleapi.Error) *Error {
	status := apiStatus(ge)
	out := &Error{Code: ge.Code, Status: status, Message: ge.Message, Err: ge}
	if out.Message == "" {
		out.Message = http.StatusText(ge.Code)
	}
	msg := strings.ToLower(ge.Message)

	switch {
	case ge.Code == http.StatusUnauthorized || status == "UNAUTHENTICATED":
		out.Kind = ErrAuth
	case ge.Code == http.StatusForbidden && status == "PERMISSION_DENIED":
		out.Kind = ErrPermission
	case ge.Code == http.StatusForbidden:
		out.Kind = ErrAuth
	case ge.Code == http.StatusNotFound && strings.Contains(msg, "not found"):
		out.Kind = ErrSchema
	case ge.Code == http.StatusBadRequest && strings.Contains(msg, "unable to parse range"):
		out.Kind = ErrSchema
	case ge.Code == http.StatusTooManyRequests || ge.Code >= http.StatusInternalServerError:
		out.Kind = ErrUnavailable
	default:
		out.Kind = ErrUnknown
	}
	return out
}
