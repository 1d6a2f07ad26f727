// Package message defines the envelope types that wrap every RPC exchange
// and the server-side wire error taxonomy.
//
// Request[T] reserves space for future control messages by wrapping the
// request sum in an envelope with a single data-bearing variant. Response[T]
// adds a second, cross-cutting variant: Error(ServerError). Both envelopes
// serialize as a single-key JSON object, e.g. {"Data":{"Hello":"deadbeef"}}
// or {"Error":{"DecodingError":"expected value at line 1 column 1"}}.
package message

import (
	"encoding/json"
	"fmt"
)

// Request wraps a request sum T. Data is the only variant today; the
// envelope exists so a future control message can be added without
// reshaping every generated request sum.
type Request[T any] struct {
	Data T
}

// MarshalJSON renders the envelope as {"Data": <T>}.
func (r Request[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Data T `json:"Data"`
	}{Data: r.Data})
}

// UnmarshalJSON parses {"Data": <T>}.
func (r *Request[T]) UnmarshalJSON(b []byte) error {
	var wire struct {
		Data T `json:"Data"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	r.Data = wire.Data
	return nil
}

// Response wraps a response sum T, or a ServerError when the server could
// not produce a T. Exactly one of the two is meaningful; IsError reports
// which.
type Response[T any] struct {
	Data    T
	Err     ServerError
	isError bool
}

// DataResponse builds a successful response envelope.
func DataResponse[T any](data T) Response[T] {
	return Response[T]{Data: data}
}

// ErrorResponse builds a failed response envelope.
func ErrorResponse[T any](err ServerError) Response[T] {
	return Response[T]{Err: err, isError: true}
}

// IsError reports whether this envelope carries a ServerError rather than a
// T.
func (r Response[T]) IsError() bool {
	return r.isError
}

// MarshalJSON renders the envelope as {"Data": <T>} or {"Error": <ServerError>}.
func (r Response[T]) MarshalJSON() ([]byte, error) {
	if r.isError {
		return json.Marshal(struct {
			Error ServerError `json:"Error"`
		}{Error: r.Err})
	}
	return json.Marshal(struct {
		Data T `json:"Data"`
	}{Data: r.Data})
}

// UnmarshalJSON parses either shape, setting isError accordingly.
func (r *Response[T]) UnmarshalJSON(b []byte) error {
	var probe struct {
		Data  *json.RawMessage `json:"Data"`
		Error *json.RawMessage `json:"Error"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	switch {
	case probe.Error != nil:
		var err ServerError
		if e := json.Unmarshal(*probe.Error, &err); e != nil {
			return e
		}
		r.Err = err
		r.isError = true
	case probe.Data != nil:
		var data T
		if e := json.Unmarshal(*probe.Data, &data); e != nil {
			return e
		}
		r.Data = data
		r.isError = false
	default:
		return fmt.Errorf("message: response envelope has neither Data nor Error key")
	}
	return nil
}
