package response

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Error is implemented by errors that know which http status they map to.
// The project errors package and ErrorResp both satisfy it.
type Error interface {
	HTTPStatusCode() int
	Error() string
}

// ErrorResp renders as {"status": <code>, "error": "<message>"}.
type ErrorResp struct {
	code int
	msg  string
}

// WrapError turns any error into a response, keeping the status of errors
// that carry one and answering 500 for anything else.
func WrapError(e error) *ErrorResp {
	if err, ok := e.(*ErrorResp); ok {
		return err
	}
	code := http.StatusInternalServerError
	if err := Error(nil); errors.As(e, &err) {
		code = err.HTTPStatusCode()
	}
	return NewError(code, e.Error())
}

func NewError(code int, msg string) *ErrorResp {
	return &ErrorResp{
		code: code,
		msg:  msg,
	}
}

func Errorf(code int, format string, a ...interface{}) *ErrorResp {
	return NewError(code, fmt.Sprintf(format, a...))
}

func (r *ErrorResp) Error() string {
	return r.msg
}

func (r *ErrorResp) HTTPStatusCode() int {
	return r.code
}

func (r *ErrorResp) Code() int {
	return r.code
}

func (r *ErrorResp) Close() {
}

// Body does not use BufferPool: ErrorResp values such as RequestCanceledErr
// are shared between requests.
func (r *ErrorResp) Body() ([]byte, error) {
	b := make([]byte, 0, len(r.msg)+32)
	b = append(b, `{"status":`...)
	b = strconv.AppendInt(b, int64(r.code), 10)
	b = append(b, `,"error":`...)
	b = strconv.AppendQuote(b, r.msg)
	b = append(b, '}')
	return b, nil
}

func (r *ErrorResp) Headers() map[string]string {
	return map[string]string{"content-type": "application/json"}
}

// HttpClientClosedRequest is the nginx convention for a client that went away
// before the response was ready.
const HttpClientClosedRequest = 499

var RequestCanceledErr = NewError(HttpClientClosedRequest, "request canceled")
