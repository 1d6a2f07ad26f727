package message

import (
	"encoding/json"
	"fmt"
)

// ServerErrorKind names the closed taxonomy of wire-facing server errors.
type ServerErrorKind int

const (
	// BadRequest means the request envelope did not match any known
	// variant.
	BadRequest ServerErrorKind = iota
	// DecodingError means the payload could not be parsed into the
	// expected request sum.
	DecodingError
	// ProcessorError means the service's own method returned an error;
	// Text carries its stringified form.
	ProcessorError
)

// ServerError is the closed, server-side wire error taxonomy of spec §4.2:
// BadRequest, DecodingError(text), ProcessorError(text).
type ServerError struct {
	Kind ServerErrorKind
	Text string
}

func NewBadRequest() ServerError {
	return ServerError{Kind: BadRequest}
}

func NewDecodingError(text string) ServerError {
	return ServerError{Kind: DecodingError, Text: text}
}

func NewProcessorError(text string) ServerError {
	return ServerError{Kind: ProcessorError, Text: text}
}

func (e ServerError) Error() string {
	switch e.Kind {
	case BadRequest:
		return "bad request"
	case DecodingError:
		return fmt.Sprintf("decoding error: %s", e.Text)
	case ProcessorError:
		return fmt.Sprintf("processor error: %s", e.Text)
	default:
		return "unknown server error"
	}
}

// MarshalJSON renders the tagged union: {"BadRequest":null},
// {"DecodingError":"text"}, or {"ProcessorError":"text"}.
func (e ServerError) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case BadRequest:
		return json.Marshal(struct {
			BadRequest *struct{} `json:"BadRequest"`
		}{})
	case DecodingError:
		return json.Marshal(struct {
			DecodingError string `json:"DecodingError"`
		}{DecodingError: e.Text})
	case ProcessorError:
		return json.Marshal(struct {
			ProcessorError string `json:"ProcessorError"`
		}{ProcessorError: e.Text})
	default:
		return nil, fmt.Errorf("message: unknown ServerError kind %d", e.Kind)
	}
}

// UnmarshalJSON parses any of the three tagged shapes.
func (e *ServerError) UnmarshalJSON(b []byte) error {
	var wire struct {
		BadRequest     json.RawMessage `json:"BadRequest"`
		DecodingError  *string         `json:"DecodingError"`
		ProcessorError *string         `json:"ProcessorError"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	switch {
	case wire.DecodingError != nil:
		*e = NewDecodingError(*wire.DecodingError)
	case wire.ProcessorError != nil:
		*e = NewProcessorError(*wire.ProcessorError)
	case wire.BadRequest != nil:
		*e = NewBadRequest()
	default:
		return fmt.Errorf("message: server error envelope has no known variant")
	}
	return nil
}
