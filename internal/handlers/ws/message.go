package ws

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Server frame types.
const (
	FrameConnected         = "connected"
	FrameSubscribed        = "subscribed"
	FrameSubscriptionError = "subscription_error"
	FrameEvent             = "event"
	FramePong              = "pong"
	FrameError             = "error"
)

// Presence events emitted on presence channels.
const (
	EventMemberAdded   = "member_added"
	EventMemberRemoved = "member_removed"
)

// MessageContext provides everything a client frame needs while being processed.
type MessageContext struct {
	Client *Client
	Hub    *Hub
}

// Message is a frame sent by the client.
type Message interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// SerializedMessage is the wire format wrapper for both directions.
type SerializedMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Member is how a user appears on a presence channel.
type Member struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ConnectedPayload struct {
	SocketID string `json:"socket_id"`
}

type SubscribedPayload struct {
	Channel string   `json:"channel"`
	Members []Member `json:"members,omitempty"`
}

type SubscriptionErrorPayload struct {
	Channel string `json:"channel"`
	Error   string `json:"error"`
}

type EventPayload struct {
	Channel string      `json:"channel"`
	Event   string      `json:"event"`
	Data    interface{} `json:"data"`
}

// ErrorPayload is sent when a client frame cannot be processed.
type ErrorPayload struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func ToJson(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func FromJson(jsonBytes []byte, msg Message) error {
	if len(jsonBytes) == 0 {
		return nil
	}
	return json.Unmarshal(jsonBytes, msg)
}

func CreateMessage(msgType string, typeRegistry map[string]reflect.Type) (Message, error) {
	msgTypeReflect, ok := typeRegistry[msgType]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", msgType)
	}

	instance := reflect.New(msgTypeReflect).Interface()
	return instance.(Message), nil
}

// Frame encodes a server frame.
func Frame(frameType string, payload interface{}) ([]byte, error) {
	wrapper := SerializedMessage{Type: frameType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		wrapper.Payload = raw
	}
	return json.Marshal(wrapper)
}

// SendError queues an error frame for the client.
func SendError(client *Client, code, message, details string) bool {
	return client.Send(FrameError, ErrorPayload{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
