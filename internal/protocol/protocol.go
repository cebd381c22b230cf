// Package protocol implements the wire format shared by every service:
// length-prefixed JSON frames carrying a Request/Response envelope.
//
// Each frame is a 4-byte big-endian unsigned length followed by exactly
// that many bytes of UTF-8 JSON. A connection carries independent
// request/response pairs with at most one request in flight.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"minimart/pkg/apierror"
)

const (
	// TypeRequest and TypeResponse are the envelope type tags.
	TypeRequest  = "Request"
	TypeResponse = "Response"

	headerSize = 4

	// MaxFrameSize bounds a single frame payload. A peer announcing a
	// larger frame is treated as a protocol violation.
	MaxFrameSize = 16 << 20
)

// Request is the envelope for a single API call.
type Request struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	API       string          `json:"api"`
	Data      json.RawMessage `json:"data"`
}

// Response is the envelope answering a Request. RequestID always echoes
// the request's id; Error is null on success, Data null on failure.
type Response struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	OK        bool            `json:"ok"`
	Error     *apierror.Error `json:"error"`
	Data      json.RawMessage `json:"data"`
}

// NewRequest builds a Request envelope, marshaling data into the payload.
func NewRequest(requestID, api string, data any) (*Request, error) {
	raw, err := marshalData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request data: %w", err)
	}
	return &Request{
		Type:      TypeRequest,
		RequestID: requestID,
		API:       api,
		Data:      raw,
	}, nil
}

// OKResponse builds a successful Response echoing the request's id.
func OKResponse(req *Request, data any) *Response {
	raw, err := marshalData(data)
	if err != nil {
		// Response payloads are built from our own types; a marshal
		// failure here is a programming error.
		return ErrResponse(req, apierror.Unavailable("failed to encode response"))
	}
	return &Response{
		Type:      TypeResponse,
		RequestID: req.RequestID,
		OK:        true,
		Data:      raw,
	}
}

// ErrResponse builds a failed Response carrying the given error.
func ErrResponse(req *Request, apiErr *apierror.Error) *Response {
	return &Response{
		Type:      TypeResponse,
		RequestID: req.RequestID,
		OK:        false,
		Error:     apiErr,
	}
}

// DecodeData unmarshals a payload into v. A null or absent payload is
// treated as an empty object so param structs decode to zero values.
func DecodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

func marshalData(data any) (json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	if raw, ok := data.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(data)
}

// WriteFrame marshals v and writes it as a single header+payload send.
func WriteFrame(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit", len(payload))
	}

	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buf[:headerSize], uint32(len(payload)))
	copy(buf[headerSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame and unmarshals it into v.
// A connection closing before the header or payload is complete is a
// transport error.
func ReadFrame(r io.Reader, v any) error {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("failed to read frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(header)
	if length > MaxFrameSize {
		return fmt.Errorf("peer announced frame of %d bytes, exceeds limit", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("failed to read frame payload: %w", err)
	}

	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to decode frame: %w", err)
	}
	return nil
}

// ReadRequest reads one Request frame.
func ReadRequest(r io.Reader) (*Request, error) {
	var req Request
	if err := ReadFrame(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ReadResponse reads one Response frame.
func ReadResponse(r io.Reader) (*Response, error) {
	var resp Response
	if err := ReadFrame(r, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
