package ws

import "errors"

var errMissingChannel = errors.New("channel is required")

// MessageSubscribe asks to join a channel.
type MessageSubscribe struct {
	Channel string `json:"channel"`
}

func (msg *MessageSubscribe) GetType() string {
	return "subscribe"
}

func (msg *MessageSubscribe) Process(ctx *MessageContext) error {
	if msg.Channel == "" {
		return errMissingChannel
	}
	ctx.Hub.Subscribe(ctx.Client, msg.Channel)
	return nil
}

// MessageUnsubscribe leaves a channel.
type MessageUnsubscribe struct {
	Channel string `json:"channel"`
}

func (msg *MessageUnsubscribe) GetType() string {
	return "unsubscribe"
}

func (msg *MessageUnsubscribe) Process(ctx *MessageContext) error {
	if msg.Channel == "" {
		return errMissingChannel
	}
	ctx.Hub.Unsubscribe(ctx.Client, msg.Channel)
	return nil
}
