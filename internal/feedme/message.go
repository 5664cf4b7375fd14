package feedme

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/auriora/feedme-client/pkg/errors"
)

// MessageType discriminates wire messages (spec §6).
type MessageType string

const (
	MessageTypeHandshake         MessageType = "Handshake"
	MessageTypeHandshakeResponse MessageType = "HandshakeResponse"
	MessageTypeAction            MessageType = "Action"
	MessageTypeActionResponse    MessageType = "ActionResponse"
	MessageTypeFeedOpen          MessageType = "FeedOpen"
	MessageTypeFeedOpenResponse  MessageType = "FeedOpenResponse"
	MessageTypeFeedClose         MessageType = "FeedClose"
	MessageTypeFeedCloseResponse MessageType = "FeedCloseResponse"
	MessageTypeActionRevelation  MessageType = "ActionRevelation"
	MessageTypeFeedTermination   MessageType = "FeedTermination"
	MessageTypeViolationResponse MessageType = "ViolationResponse"
)

// Outbound messages (client -> server).

type handshakeMessage struct {
	MessageType MessageType `json:"MessageType"`
	Versions    []string    `json:"Versions"`
}

type actionMessage struct {
	MessageType MessageType `json:"MessageType"`
	ActionName  string      `json:"ActionName"`
	ActionArgs  interface{} `json:"ActionArgs"`
	CallbackId  string      `json:"CallbackId"`
}

type feedOpenMessage struct {
	MessageType MessageType       `json:"MessageType"`
	FeedName    string            `json:"FeedName"`
	FeedArgs    map[string]string `json:"FeedArgs"`
}

type feedCloseMessage struct {
	MessageType MessageType       `json:"MessageType"`
	FeedName    string            `json:"FeedName"`
	FeedArgs    map[string]string `json:"FeedArgs"`
}

// Inbound messages (server -> client).

type handshakeResponseMessage struct {
	MessageType MessageType `json:"MessageType"`
	Success     bool        `json:"Success"`
	Version     string      `json:"Version"`
}

type actionResponseMessage struct {
	MessageType MessageType `json:"MessageType"`
	CallbackId  string      `json:"CallbackId"`
	Success     bool        `json:"Success"`
	ActionData  interface{} `json:"ActionData"`
	ErrorCode   string      `json:"ErrorCode"`
	ErrorData   interface{} `json:"ErrorData"`
}

type feedOpenResponseMessage struct {
	MessageType MessageType       `json:"MessageType"`
	FeedName    string            `json:"FeedName"`
	FeedArgs    map[string]string `json:"FeedArgs"`
	Success     bool              `json:"Success"`
	FeedData    interface{}       `json:"FeedData"`
	ErrorCode   string            `json:"ErrorCode"`
	ErrorData   interface{}       `json:"ErrorData"`
}

type feedCloseResponseMessage struct {
	MessageType MessageType       `json:"MessageType"`
	FeedName    string            `json:"FeedName"`
	FeedArgs    map[string]string `json:"FeedArgs"`
}

type actionRevelationMessage struct {
	MessageType MessageType       `json:"MessageType"`
	ActionName  string            `json:"ActionName"`
	ActionData  interface{}       `json:"ActionData"`
	FeedName    string            `json:"FeedName"`
	FeedArgs    map[string]string `json:"FeedArgs"`
	FeedDeltas  []Delta           `json:"FeedDeltas"`
	FeedMd5     string            `json:"FeedMd5"`
}

type feedTerminationMessage struct {
	MessageType MessageType       `json:"MessageType"`
	FeedName    string            `json:"FeedName"`
	FeedArgs    map[string]string `json:"FeedArgs"`
	ErrorCode   string            `json:"ErrorCode"`
	ErrorData   interface{}       `json:"ErrorData"`
}

type violationResponseMessage struct {
	MessageType MessageType `json:"MessageType"`
	Diagnostics string      `json:"Diagnostics"`
}

// inboundSchema is the minimal JSON schema enforced on every inbound frame
// before it is unmarshalled into a concrete message struct: it must be a
// JSON object carrying a MessageType string (spec §4.2, §6). No per-type
// fields are checked: the switch in decodeInbound only maps the MessageType
// to its struct, and a field missing from the frame decodes to its zero
// value.
const inboundSchemaJSON = `{
  "type": "object",
  "required": ["MessageType"],
  "properties": {
    "MessageType": {"type": "string"}
  }
}`

var inboundSchema = gojsonschema.NewStringLoader(inboundSchemaJSON)

// encodeOutbound renders msg as its canonical outbound JSON frame.
func encodeOutbound(msg interface{}) (string, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode outbound message")
	}
	return string(b), nil
}

// decodeInbound validates frame against the schema and decodes it into one
// of the inbound message structs, returning it as `interface{}`. Anything
// that is not valid JSON, fails the schema, or carries an unrecognized
// MessageType is rejected with INVALID_MESSAGE.
func decodeInbound(frame string) (interface{}, error) {
	docLoader := gojsonschema.NewStringLoader(frame)
	result, err := gojsonschema.Validate(inboundSchema, docLoader)
	if err != nil {
		return nil, errors.NewTypedWrap(errors.KindInvalidMessage, "frame is not valid JSON", err)
	}
	if !result.Valid() {
		return nil, errors.NewTyped(errors.KindInvalidMessage, "frame failed schema validation")
	}

	var disc struct {
		MessageType MessageType `json:"MessageType"`
	}
	if err := json.Unmarshal([]byte(frame), &disc); err != nil {
		return nil, errors.NewTypedWrap(errors.KindInvalidMessage, "failed to read MessageType", err)
	}

	var target interface{}
	switch disc.MessageType {
	case MessageTypeHandshakeResponse:
		target = &handshakeResponseMessage{}
	case MessageTypeActionResponse:
		target = &actionResponseMessage{}
	case MessageTypeFeedOpenResponse:
		target = &feedOpenResponseMessage{}
	case MessageTypeFeedCloseResponse:
		target = &feedCloseResponseMessage{}
	case MessageTypeActionRevelation:
		target = &actionRevelationMessage{}
	case MessageTypeFeedTermination:
		target = &feedTerminationMessage{}
	case MessageTypeViolationResponse:
		target = &violationResponseMessage{}
	default:
		return nil, errors.NewTyped(errors.KindInvalidMessage, fmt.Sprintf("unrecognized MessageType %q", disc.MessageType))
	}

	if err := json.Unmarshal([]byte(frame), target); err != nil {
		return nil, errors.NewTypedWrap(errors.KindInvalidMessage, "failed to decode message body", err)
	}
	return target, nil
}
