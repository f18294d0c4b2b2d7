package ws

import (
	"errors"
	"testing"
	"time"

	"github.com/noteduco342/OMChat-backend/internal/models"
	"github.com/noteduco342/OMChat-backend/internal/testutil"
)

// fakeParticipation holds participant rows keyed by conversation then user.
type fakeParticipation struct {
	rows map[uint]map[uint]*models.Participant
	err  error
}

func (f *fakeParticipation) IsActiveParticipant(conversationID, userID uint) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	p, ok := f.rows[conversationID][userID]
	return ok && p.IsActive(), nil
}

func TestParticipantAuthorizer(t *testing.T) {
	h := testutil.NewTestHelper(t)
	left := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	participation := &fakeParticipation{rows: map[uint]map[uint]*models.Participant{
		10: {
			1: h.CreateTestParticipant(10, 1, nil),
			2: h.CreateTestParticipant(10, 2, &left),
		},
	}}
	auth := NewParticipantAuthorizer(participation)

	tests := []struct {
		name    string
		userID  uint
		channel string
		want    error
	}{
		{"own user channel", 1, "user.1", nil},
		{"foreign user channel", 1, "user.2", ErrChannelDenied},
		{"active participant conversation", 1, "conversation.10", nil},
		{"left participant conversation", 2, "conversation.10", ErrChannelDenied},
		{"stranger conversation", 3, "conversation.10", ErrChannelDenied},
		{"active participant presence", 1, "presence-conversation.10", nil},
		{"left participant presence", 2, "presence-conversation.10", ErrChannelDenied},
		{"stranger presence", 3, "presence-conversation.10", ErrChannelDenied},
		{"unknown kind", 1, "private-conversation.10", ErrUnknownChannel},
		{"zero id", 1, "conversation.0", ErrUnknownChannel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.Authorize(tt.userID, tt.channel)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Authorize(%d, %q) = %v, want %v", tt.userID, tt.channel, err, tt.want)
			}
		})
	}

	t.Run("storage errors surface", func(t *testing.T) {
		boom := errors.New("boom")
		a := NewParticipantAuthorizer(&fakeParticipation{err: boom})
		if err := a.Authorize(1, "conversation.10"); !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
	})
}
