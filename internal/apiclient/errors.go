package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/florianilch/shelf/internal/session"
)

// Kind classifies an Error.
type Kind int

const (
	// KindHTTP is a non-2xx response that is not a terminal authentication failure.
	KindHTTP Kind = iota + 1
	// KindSessionExpired is a 401 that could not be recovered by refreshing.
	KindSessionExpired
	// KindTransport means no response was received (DNS, refused connection, timeout, cancellation).
	KindTransport
	// KindParse is a successful response whose body could not be decoded.
	KindParse
	// KindRequest means the request could not be built (encoding, credential storage).
	KindRequest
)

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindSessionExpired:
		return "session_expired"
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	case KindRequest:
		return "request"
	default:
		return "unknown"
	}
}

// Messages used when the server does not provide one.
const (
	DefaultErrorMessage   = "Произошла ошибка"
	SessionExpiredMessage = "session expired"
	DownloadFailedMessage = "failed to download file"
)

// Error is the normalized failure returned by every Client operation.
type Error struct {
	Kind Kind
	// Status is the HTTP status code, 0 when no response was received.
	Status int
	// Message is user-presentable: the server's detail/message when available.
	Message string
	// Unparseable is set when an error response body carried no usable message.
	Unparseable bool
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " %d", e.Status)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets callers test session expiry without unwrapping to *Error.
func (e *Error) Is(target error) bool {
	return target == session.ErrSessionExpired && e.Kind == KindSessionExpired
}

// AsError extracts the normalized error from err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusCode returns the HTTP status carried by err, 0 if there is none.
func StatusCode(err error) int {
	if apiErr, ok := AsError(err); ok {
		return apiErr.Status
	}
	return 0
}

// errorBody is the error payload shape: {"detail": ...} or {"message": ...}.
// detail is either a string or a list of validation issues carrying "msg".
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

type validationIssue struct {
	Msg string `json:"msg"`
}

// parseErrorMessage extracts a message from an error response body.
// ok is false when the body is not JSON or carries neither field.
func parseErrorMessage(data []byte) (msg string, ok bool) {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return "", false
	}

	if len(body.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(body.Detail, &detail); err == nil && detail != "" {
			return detail, true
		}

		var issues []validationIssue
		if err := json.Unmarshal(body.Detail, &issues); err == nil {
			msgs := make([]string, 0, len(issues))
			for _, issue := range issues {
				if issue.Msg != "" {
					msgs = append(msgs, issue.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; "), true
			}
		}
	}

	if body.Message != "" {
		return body.Message, true
	}
	return "", false
}
