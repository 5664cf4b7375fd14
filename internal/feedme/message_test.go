package feedme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auriora/feedme-client/pkg/errors"
)

// TestUT_FM_03_01_EncodeOutbound_Handshake_ProducesMessageType verifies the
// outbound encoder stamps MessageType onto the frame.
func TestUT_FM_03_01_EncodeOutbound_Handshake_ProducesMessageType(t *testing.T) {
	frame, err := encodeOutbound(handshakeMessage{MessageType: MessageTypeHandshake, Versions: []string{"0.1"}})
	require.NoError(t, err)
	assert.Contains(t, frame, `"MessageType":"Handshake"`)
}

// TestUT_FM_03_02_DecodeInbound_ActionResponse_RoundTrips verifies decoding
// a well-formed ActionResponse frame.
func TestUT_FM_03_02_DecodeInbound_ActionResponse_RoundTrips(t *testing.T) {
	frame := `{"MessageType":"ActionResponse","CallbackId":"abc","Success":true,"ActionData":{"x":1}}`
	msg, err := decodeInbound(frame)
	require.NoError(t, err)
	ar, ok := msg.(*actionResponseMessage)
	require.True(t, ok)
	assert.Equal(t, "abc", ar.CallbackId)
	assert.True(t, ar.Success)
}

// TestUT_FM_03_03_DecodeInbound_MissingMessageType_FailsInvalidMessage
// verifies the schema gate rejects a frame lacking MessageType.
func TestUT_FM_03_03_DecodeInbound_MissingMessageType_FailsInvalidMessage(t *testing.T) {
	_, err := decodeInbound(`{"Foo":"bar"}`)
	require.Error(t, err)
	assert.True(t, errors.HasKind(err, errors.KindInvalidMessage))
}

// TestUT_FM_03_04_DecodeInbound_UnrecognizedType_FailsInvalidMessage
// verifies an unrecognized MessageType is rejected.
func TestUT_FM_03_04_DecodeInbound_UnrecognizedType_FailsInvalidMessage(t *testing.T) {
	_, err := decodeInbound(`{"MessageType":"SomethingElse"}`)
	require.Error(t, err)
	assert.True(t, errors.HasKind(err, errors.KindInvalidMessage))
}

// TestUT_FM_03_05_DecodeInbound_NotJSON_FailsInvalidMessage verifies
// malformed JSON is rejected rather than panicking.
func TestUT_FM_03_05_DecodeInbound_NotJSON_FailsInvalidMessage(t *testing.T) {
	_, err := decodeInbound(`not json`)
	require.Error(t, err)
	assert.True(t, errors.HasKind(err, errors.KindInvalidMessage))
}
