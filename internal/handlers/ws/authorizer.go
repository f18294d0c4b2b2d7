package ws

import (
	"errors"

	"github.com/noteduco342/OMChat-backend/internal/models"
)

var (
	ErrUnknownChannel = errors.New("unknown channel")
	ErrChannelDenied  = errors.New("subscription denied")
)

// ChannelAuthorizer decides whether a user may subscribe to a channel.
type ChannelAuthorizer interface {
	Authorize(userID uint, channel string) error
}

type Participation interface {
	IsActiveParticipant(conversationID, userID uint) (bool, error)
}

// ParticipantAuthorizer grants conversation and presence channels to active
// participants and user channels to their owner. A participant who left reads
// history over HTTP but no longer receives live events.
type ParticipantAuthorizer struct {
	participation Participation
}

func NewParticipantAuthorizer(participation Participation) *ParticipantAuthorizer {
	return &ParticipantAuthorizer{participation: participation}
}

func (a *ParticipantAuthorizer) Authorize(userID uint, channel string) error {
	kind, id, ok := models.ParseChannel(channel)
	if !ok {
		return ErrUnknownChannel
	}

	switch kind {
	case models.UserChannelKind:
		if id != userID {
			return ErrChannelDenied
		}
		return nil
	case models.ConversationChannelKind, models.PresenceChannelKind:
		active, err := a.participation.IsActiveParticipant(id, userID)
		if err != nil {
			return err
		}
		if !active {
			return ErrChannelDenied
		}
		return nil
	}
	return ErrUnknownChannel
}
