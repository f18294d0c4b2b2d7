package service

import (
	"time"

	"github.com/noteduco342/OMChat-backend/internal/models"
	"github.com/noteduco342/OMChat-backend/internal/repository"
)

// ParticipationService owns the per-user state of a conversation: membership,
// visibility bounds, mute flag and read marker.
type ParticipationService struct {
	participants repository.ParticipantRepositoryInterface
	now          func() time.Time
}

func NewParticipationService(participants repository.ParticipantRepositoryInterface) *ParticipationService {
	return &ParticipationService{participants: participants, now: time.Now}
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func buildParticipants(conversationID uint, userIDs []uint, joinedAt time.Time, role func(uint) *models.ParticipantRole) []models.Participant {
	rows := make([]models.Participant, 0, len(userIDs))
	for _, uid := range userIDs {
		at := joinedAt
		rows = append(rows, models.Participant{
			ConversationID: conversationID,
			UserID:         uid,
			JoinedAt:       &at,
			Role:           role(uid),
		})
	}
	return rows
}

func fixedRole(role *models.ParticipantRole) func(uint) *models.ParticipantRole {
	return func(uint) *models.ParticipantRole { return role }
}

// AttachParticipants adds users with the given visibility floor. If any of them
// already has a row the whole call fails with ErrDuplicateParticipant.
func (s *ParticipationService) AttachParticipants(conversationID uint, userIDs []uint, joinedAt time.Time, role *models.ParticipantRole) ([]models.Participant, error) {
	userIDs = uniqueIDs(userIDs)
	if len(userIDs) == 0 {
		return nil, invalid("user_ids", "at least one user is required")
	}
	for _, uid := range userIDs {
		if _, err := s.participants.Find(conversationID, uid); err == nil {
			return nil, ErrDuplicateParticipant
		} else if !isNotFound(err) {
			return nil, err
		}
	}

	rows := buildParticipants(conversationID, userIDs, joinedAt, fixedRole(role))
	if err := s.participants.Attach(rows); err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicateParticipant
		}
		return nil, err
	}
	return rows, nil
}

// Member returns the caller's row whether active or left.
func (s *ParticipationService) Member(conversationID, userID uint) (*models.Participant, error) {
	p, err := s.participants.Find(conversationID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotParticipant
		}
		return nil, err
	}
	return p, nil
}

// RequireActive returns the caller's row if it exists and has not left.
func (s *ParticipationService) RequireActive(conversationID, userID uint) (*models.Participant, error) {
	p, err := s.Member(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, ErrParticipantLeft
	}
	return p, nil
}

func (s *ParticipationService) IsActiveParticipant(conversationID, userID uint) (bool, error) {
	_, err := s.RequireActive(conversationID, userID)
	switch err {
	case nil:
		return true, nil
	case ErrNotParticipant, ErrParticipantLeft:
		return false, nil
	default:
		return false, err
	}
}

// MarkLeft closes the participant's visibility window. The row is kept.
func (s *ParticipationService) MarkLeft(conversationID, userID uint, when time.Time) error {
	if _, err := s.RequireActive(conversationID, userID); err != nil {
		return err
	}
	ok, err := s.participants.MarkLeft(conversationID, userID, when)
	if err != nil {
		return err
	}
	if !ok {
		return ErrParticipantLeft
	}
	return nil
}

// AdvanceReadMarker reports whether the marker moved. Smaller ids are ignored.
func (s *ParticipationService) AdvanceReadMarker(conversationID, userID, messageID uint) (bool, error) {
	return s.participants.AdvanceReadMarker(conversationID, userID, messageID)
}

func (s *ParticipationService) SetMuted(conversationID, userID uint, muted bool) error {
	if _, err := s.RequireActive(conversationID, userID); err != nil {
		return err
	}
	return s.participants.SetMuted(conversationID, userID, muted)
}

// ListByUser returns every row of the user, including conversations left.
func (s *ParticipationService) ListByUser(userID uint) ([]models.Participant, error) {
	return s.participants.ListByUser(userID)
}

func (s *ParticipationService) ListByConversation(conversationID uint) ([]models.Participant, error) {
	return s.participants.ListByConversation(conversationID)
}
