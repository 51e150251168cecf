package api

import (
	"time"
)

// Request records one tool invocation as issued by a caller.
type Request struct {
	ID         string                 `json:"request_id"`
	ToolName   string                 `json:"tool_name"`
	Parameters map[string]interface{} `json:"parameters"`
	Context    *Context               `json:"context"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Response is the outcome of a Request. Failures are reported through
// Success/Error rather than Go errors; Err keeps the typed cause for
// in-process callers.
type Response struct {
	RequestID string                 `json:"request_id"`
	Success   bool                   `json:"success"`
	Data      interface{}            `json:"data,omitempty"`
	Error     string                 `json:"error,omitempty"`
	ErrorKind ErrorKind              `json:"error_kind,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	Err error `json:"-"`
}

// NewSuccessResponse builds a successful response.
func NewSuccessResponse(requestID string, data interface{}, at time.Time) *Response {
	return &Response{
		RequestID: requestID,
		Success:   true,
		Data:      data,
		Metadata:  make(map[string]interface{}),
		Timestamp: at,
	}
}

// NewErrorResponse builds a failed response from err, classifying its kind.
func NewErrorResponse(requestID string, err error, at time.Time) *Response {
	return &Response{
		RequestID: requestID,
		Success:   false,
		Error:     err.Error(),
		ErrorKind: Kind(err),
		Metadata:  make(map[string]interface{}),
		Timestamp: at,
		Err:       err,
	}
}
