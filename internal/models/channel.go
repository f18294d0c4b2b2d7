package models

import (
	"fmt"
	"strconv"
	"strings"
)

type ChannelKind string

const (
	ConversationChannelKind ChannelKind = "conversation"
	UserChannelKind         ChannelKind = "user"
	PresenceChannelKind     ChannelKind = "presence-conversation"
)

func ConversationChannel(conversationID uint) string {
	return fmt.Sprintf("%s.%d", ConversationChannelKind, conversationID)
}

func UserChannel(userID uint) string {
	return fmt.Sprintf("%s.%d", UserChannelKind, userID)
}

func PresenceChannel(conversationID uint) string {
	return fmt.Sprintf("%s.%d", PresenceChannelKind, conversationID)
}

// ParseChannel splits "<kind>.<id>" and rejects unknown kinds or ids.
func ParseChannel(name string) (ChannelKind, uint, bool) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return "", 0, false
	}
	kind := ChannelKind(name[:i])
	switch kind {
	case ConversationChannelKind, UserChannelKind, PresenceChannelKind:
	default:
		return "", 0, false
	}
	id, err := strconv.ParseUint(name[i+1:], 10, 64)
	if err != nil || id == 0 {
		return "", 0, false
	}
	return kind, uint(id), true
}
