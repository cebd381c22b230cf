package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimart/pkg/apierror"
)

func TestRequestRoundTrip(t *testing.T) {
	req, err := NewRequest("req-1", "UpdateCart", map[string]any{
		"buyer_id":       1,
		"item_id":        "1:1",
		"quantity_delta": -2,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, req))

	got, err := ReadRequest(&buf)
	require.NoError(t, err)

	assert.Equal(t, TypeRequest, got.Type)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "UpdateCart", got.API)
	assert.JSONEq(t, string(req.Data), string(got.Data))
}

func TestResponseRoundTrip(t *testing.T) {
	req := &Request{Type: TypeRequest, RequestID: "req-2", API: "GetItem"}

	t.Run("ok", func(t *testing.T) {
		resp := OKResponse(req, map[string]any{"item_id": "3:7"})

		var buf bytes.Buffer
		require.NoError(t, WriteFrame(&buf, resp))

		got, err := ReadResponse(&buf)
		require.NoError(t, err)
		assert.True(t, got.OK)
		assert.Equal(t, "req-2", got.RequestID)
		assert.Nil(t, got.Error)
		assert.JSONEq(t, `{"item_id":"3:7"}`, string(got.Data))
	})

	t.Run("error", func(t *testing.T) {
		resp := ErrResponse(req, apierror.NotFound("item not found"))

		var buf bytes.Buffer
		require.NoError(t, WriteFrame(&buf, resp))

		got, err := ReadResponse(&buf)
		require.NoError(t, err)
		assert.False(t, got.OK)
		require.NotNil(t, got.Error)
		assert.Equal(t, apierror.CodeNotFound, got.Error.Code)
		assert.Equal(t, "item not found", got.Error.Message)
	})
}

func TestErrorAndDataAreExplicitNulls(t *testing.T) {
	// Peers written against the envelope expect error and data keys to
	// always be present, null when unset.
	req := &Request{Type: TypeRequest, RequestID: "req-3", API: "Ping"}
	payload, err := json.Marshal(OKResponse(req, nil))
	require.NoError(t, err)

	assert.Contains(t, string(payload), `"error":null`)
	assert.Contains(t, string(payload), `"data":null`)
}

func TestFrameHeaderIsBigEndianLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, map[string]string{"k": "v"}))

	raw := buf.Bytes()
	require.Greater(t, len(raw), 4)
	assert.Equal(t, uint32(len(raw)-4), binary.BigEndian.Uint32(raw[:4]))
	assert.JSONEq(t, `{"k":"v"}`, string(raw[4:]))
}

func TestReadFrameShortPayload(t *testing.T) {
	// Header declares 100 bytes but the connection "closes" after 3.
	frame := []byte{0, 0, 0, 100, 'a', 'b', 'c'}

	var req Request
	err := ReadFrame(bytes.NewReader(frame), &req)
	assert.Error(t, err)
}

func TestReadFrameShortHeader(t *testing.T) {
	var req Request
	err := ReadFrame(bytes.NewReader([]byte{0, 0}), &req)
	assert.Error(t, err)
}

func TestReadFrameRejectsOversizedAnnouncement(t *testing.T) {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, MaxFrameSize+1)

	var req Request
	err := ReadFrame(bytes.NewReader(header), &req)
	assert.Error(t, err)
}

func TestDecodeDataNullPayload(t *testing.T) {
	var params struct {
		Name string `json:"name"`
	}
	require.NoError(t, DecodeData(nil, &params))
	require.NoError(t, DecodeData(json.RawMessage("null"), &params))
	assert.Empty(t, params.Name)
}
