package supabase

import (
	"fmt"

	"github.com/pkg/errors"
)

const CodeInvalidCredentials = "invalid_credentials"

var ErrNoSession = errors.New("no session")

// APIError is the error body of both the auth and the rest endpoints.
type APIError struct {
	Status int `json:"-"`

	// auth
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	ErrorName        string `json:"error"`
	ErrorDescription string `json:"error_description"`

	// rest
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = e.ErrorDescription
	}
	return fmt.Sprintf("supabase: status %d, code %q: %s", e.Status, e.ErrCode(), msg)
}

// ErrCode prefers the newer error_code field.
func (e *APIError) ErrCode() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	if e.Code != "" {
		return e.Code
	}
	return e.ErrorName
}

// HasCode reports whether err is an APIError carrying code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.ErrCode() == code {
		return true
	}
	// older auth servers only report the credentials failure through the message
	return code == CodeInvalidCredentials && apiErr.ErrorName == "invalid_grant" &&
		apiErr.ErrorDescription == "Invalid login credentials"
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
