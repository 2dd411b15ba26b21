package http

import (
	"encoding/json"
	"fmt"

	"github.com/wesleyorama2/courier/internal/header"
)

// Response represents the outcome of one call. Code and Status come from the
// response status line; ErrorCode and Error describe a transport failure and are
// independent from the HTTP status.
type Response struct {
	Code      int
	Status    string
	Header    *header.Header
	Body      []byte
	Data      interface{}
	ErrorCode int
	Error     string
	Info      TransferInfo
}

// NewResponse creates an empty response
func NewResponse() *Response {
	return &Response{Header: header.New()}
}

// IsOk returns true if the response status code is in the 2xx range
func (r *Response) IsOk() bool {
	return r.Code >= 200 && r.Code < 300
}

// IsFail returns true if the response status code is outside the 2xx range
func (r *Response) IsFail() bool {
	return !r.IsOk()
}

// IsError returns true if the transfer failed at the transport level
func (r *Response) IsError() bool {
	return r.ErrorCode != 0
}

// IsRedirect returns true if the response status code is in the 3xx range
func (r *Response) IsRedirect() bool {
	return r.Code >= 300 && r.Code < 400
}

// IsClientError returns true if the response status code is in the 4xx range
func (r *Response) IsClientError() bool {
	return r.Code >= 400 && r.Code < 500
}

// IsServerError returns true if the response status code is in the 5xx range
func (r *Response) IsServerError() bool {
	return r.Code >= 500 && r.Code < 600
}

// GetHeader returns the value of the specified header
func (r *Response) GetHeader(key string) string {
	return r.Header.Get(key, "")
}

// BodyString returns the accumulated body as a string
func (r *Response) BodyString() string {
	return string(r.Body)
}

// DecodeJSON unmarshals the body into v
func (r *Response) DecodeJSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// Parse runs parser over the body and stores the result in Data. The body is left
// untouched, so calling Parse again with another parser re-derives Data.
func (r *Response) Parse(parser Parser) (interface{}, error) {
	if parser == nil {
		return nil, fmt.Errorf("%w: parse requires a non-nil Parser", ErrContractViolation)
	}

	data, err := parser.Parse(r.Body)
	if err != nil {
		return nil, fmt.Errorf("parse body: %w", err)
	}

	r.Data = data
	return data, nil
}

// GetResponseTimeMillis returns the total transfer time in milliseconds
func (r *Response) GetResponseTimeMillis() int64 {
	return r.Info.Timing.TotalTime.Milliseconds()
}

// fail mirrors a transport error into the response
func (r *Response) fail(te *TransportError) {
	r.ErrorCode = te.Code
	r.Error = te.Message
}
