package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/noteduco342/OMChat-backend/internal/models"
	"github.com/noteduco342/OMChat-backend/internal/repository"
	"github.com/noteduco342/OMChat-backend/internal/validation"
	"go.uber.org/zap"
)

// ConversationListCache keeps rendered conversation lists per user.
type ConversationListCache interface {
	GetList(userID uint) ([]models.ConversationSummary, bool)
	SetList(userID uint, list []models.ConversationSummary) error
	Invalidate(userIDs ...uint) error
}

type CreateConversationInput struct {
	UserIDs []uint  `json:"user_ids"`
	Title   *string `json:"title"`
	IsGroup *bool   `json:"is_group"`
}

// CreateConversationResult flags a direct conversation that already existed.
type CreateConversationResult struct {
	Conversation *models.Conversation
	Existing     bool
}

// ConversationDetail is a conversation as seen by one participant.
type ConversationDetail struct {
	Conversation models.ConversationResponse `json:"conversation"`
	DisplayTitle string                      `json:"display_title"`
	Messages     []models.MessageResponse    `json:"messages"`
	UnreadCount  int64                       `json:"unread_count"`
	IsMuted      bool                        `json:"is_muted"`
	HasLeft      bool                        `json:"has_left"`
}

type ReadState struct {
	LastReadMessageID uint  `json:"last_read_message_id"`
	UnreadCount       int64 `json:"unread_count"`
}

type ConversationService struct {
	users         repository.UserRepositoryInterface
	conversations repository.ConversationRepositoryInterface
	messages      repository.MessageRepositoryInterface
	participation *ParticipationService
	unread        *UnreadCalculator
	cache         ConversationListCache
	logger        *zap.Logger
	now           func() time.Time
}

func NewConversationService(
	users repository.UserRepositoryInterface,
	conversations repository.ConversationRepositoryInterface,
	messages repository.MessageRepositoryInterface,
	participation *ParticipationService,
	cache ConversationListCache,
	logger *zap.Logger,
) *ConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationService{
		users:         users,
		conversations: conversations,
		messages:      messages,
		participation: participation,
		unread:        NewUnreadCalculator(messages),
		cache:         cache,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *ConversationService) load(conversationID uint) (*models.Conversation, error) {
	conversation, err := s.conversations.FindByID(conversationID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return conversation, nil
}

func (s *ConversationService) requireUsers(ids []uint) error {
	users, err := s.users.FindByIDs(ids)
	if err != nil {
		return err
	}
	known := make(map[uint]struct{}, len(users))
	for _, u := range users {
		known[u.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return invalid("user_ids", fmt.Sprintf("unknown user id %d", id))
		}
	}
	return nil
}

func (s *ConversationService) invalidate(userIDs ...uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(userIDs...); err != nil {
		s.logger.Debug("conversation list invalidation failed", zap.Error(err))
	}
}

func participantUserIDs(participants []models.Participant) []uint {
	ids := make([]uint, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// Create starts a conversation between the creator and the given users. A
// direct conversation between a pair that already has one returns that one.
func (s *ConversationService) Create(creatorID uint, in CreateConversationInput) (*CreateConversationResult, error) {
	ids := uniqueIDs(append([]uint{creatorID}, in.UserIDs...))
	if len(ids) < 2 || ids[0] != creatorID {
		return nil, ErrInsufficientParticipants
	}
	if err := s.requireUsers(ids); err != nil {
		return nil, err
	}

	isGroup := len(ids) > 2
	if in.IsGroup != nil {
		if !*in.IsGroup && len(ids) > 2 {
			return nil, invalid("is_group", "a direct conversation has exactly two participants")
		}
		isGroup = *in.IsGroup
	}

	var directKey *string
	if !isGroup {
		key := models.DirectKey(ids[0], ids[1])
		directKey = &key
		existing, err := s.conversations.FindByDirectKey(key)
		if err == nil {
			return &CreateConversationResult{Conversation: existing, Existing: true}, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}

	createdAt := s.now().UTC()
	conversation := &models.Conversation{
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		Title:     validation.NormalizeTitle(in.Title),
		IsGroup:   isGroup,
		CreatedBy: creatorID,
		DirectKey: directKey,
	}

	role := func(uint) *models.ParticipantRole { return nil }
	if isGroup {
		role = func(uid uint) *models.ParticipantRole {
			r := models.RoleMember
			if uid == creatorID {
				r = models.RoleAdmin
			}
			return &r
		}
	}
	// Original participants see the whole history.
	participants := buildParticipants(0, ids, createdAt, role)

	if err := s.conversations.CreateWithParticipants(conversation, participants); err != nil {
		if isDuplicate(err) && directKey != nil {
			winner, ferr := s.conversations.FindByDirectKey(*directKey)
			if ferr != nil {
				return nil, ferr
			}
			return &CreateConversationResult{Conversation: winner, Existing: true}, nil
		}
		return nil, err
	}
	s.invalidate(ids...)

	created, err := s.conversations.FindByID(conversation.ID)
	if err != nil {
		return nil, err
	}
	return &CreateConversationResult{Conversation: created}, nil
}

// ListForUser returns every conversation the user has a row in, most recently
// active first.
func (s *ConversationService) ListForUser(userID uint) ([]models.ConversationSummary, error) {
	if s.cache != nil {
		if list, ok := s.cache.GetList(userID); ok {
			return list, nil
		}
	}

	rows, err := s.participation.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	byConversation := make(map[uint]*models.Participant, len(rows))
	ids := make([]uint, 0, len(rows))
	for i := range rows {
		byConversation[rows[i].ConversationID] = &rows[i]
		ids = append(ids, rows[i].ConversationID)
	}

	conversations, err := s.conversations.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(conversations, func(i, j int) bool {
		a, b := conversations[i], conversations[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID > b.ID
	})

	digests, err := s.unread.Digests(userID, conversations, byConversation)
	if err != nil {
		return nil, err
	}
	latestIDs := make([]uint, 0, len(digests))
	for _, d := range digests {
		if d.LatestMessageID != 0 {
			latestIDs = append(latestIDs, d.LatestMessageID)
		}
	}
	latest, err := s.messages.FindByIDs(latestIDs)
	if err != nil {
		return nil, err
	}
	latestByID := make(map[uint]*models.Message, len(latest))
	for i := range latest {
		latestByID[latest[i].ID] = &latest[i]
	}

	list := make([]models.ConversationSummary, 0, len(conversations))
	for i := range conversations {
		c := &conversations[i]
		p := byConversation[c.ID]
		d := digests[c.ID]

		summary := models.ConversationSummary{
			ID:            c.ID,
			Title:         c.Title,
			DisplayTitle:  c.DisplayTitle(userID),
			IsGroup:       c.IsGroup,
			Participants:  make([]models.ParticipantResponse, 0, len(c.Participants)),
			MessagesCount: d.MessagesCount,
			UnreadCount:   d.UnreadCount,
			IsMuted:       p.IsMuted,
			HasLeft:       !p.IsActive(),
			UpdatedAt:     c.UpdatedAt,
		}
		for j := range c.Participants {
			summary.Participants = append(summary.Participants, c.Participants[j].ToResponse())
		}
		if m, ok := latestByID[d.LatestMessageID]; ok {
			summary.LatestMessage = &models.LatestMessageResponse{
				ID:        m.ID,
				Body:      m.Body,
				Type:      m.Type,
				User:      m.User.ToResponse(),
				CreatedAt: m.CreatedAt,
			}
		}
		list = append(list, summary)
	}

	if s.cache != nil {
		if err := s.cache.SetList(userID, list); err != nil {
			s.logger.Debug("conversation list cache write failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return list, nil
}

// Get returns the conversation with the caller's visible messages.
func (s *ConversationService) Get(conversationID, userID uint) (*ConversationDetail, error) {
	conversation, err := s.load(conversationID)
	if err != nil {
		return nil, err
	}
	p, err := s.participation.Member(conversationID, userID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messages.ListVisible(conversationID, p.Window(conversation.CreatedAt))
	if err != nil {
		return nil, err
	}
	unread, err := s.unread.UnreadCount(conversation, p)
	if err != nil {
		return nil, err
	}

	detail := &ConversationDetail{
		Conversation: conversation.ToResponse(),
		DisplayTitle: conversation.DisplayTitle(userID),
		Messages:     make([]models.MessageResponse, 0, len(messages)),
		UnreadCount:  unread,
		IsMuted:      p.IsMuted,
		HasLeft:      !p.IsActive(),
	}
	for i := range messages {
		detail.Messages = append(detail.Messages, messages[i].ToResponse())
	}
	return detail, nil
}

// AddParticipants adds users to a group. New members only see messages sent
// from now on.
func (s *ConversationService) AddParticipants(conversationID, actorID uint, userIDs []uint) ([]models.Participant, error) {
	conversation, err := s.load(conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.IsGroup {
		return nil, invalid("conversation_id", "participants can only be added to group conversations")
	}
	if _, err := s.participation.RequireActive(conversationID, actorID); err != nil {
		return nil, err
	}
	userIDs = uniqueIDs(userIDs)
	if len(userIDs) == 0 {
		return nil, invalid("user_ids", "at least one user is required")
	}
	if err := s.requireUsers(userIDs); err != nil {
		return nil, err
	}

	role := models.RoleMember
	if _, err := s.participation.AttachParticipants(conversationID, userIDs, s.now().UTC(), &role); err != nil {
		return nil, err
	}

	participants, err := s.participation.ListByConversation(conversationID)
	if err != nil {
		return nil, err
	}
	s.invalidate(participantUserIDs(participants)...)
	return participants, nil
}

// Leave closes the caller's visibility window at the current time.
func (s *ConversationService) Leave(conversationID, userID uint) error {
	if _, err := s.load(conversationID); err != nil {
		return err
	}
	if err := s.participation.MarkLeft(conversationID, userID, s.now().UTC()); err != nil {
		return err
	}
	if participants, err := s.participation.ListByConversation(conversationID); err == nil {
		s.invalidate(participantUserIDs(participants)...)
	} else {
		s.invalidate(userID)
	}
	return nil
}

func (s *ConversationService) Mute(conversationID, userID uint, muted bool) error {
	if _, err := s.load(conversationID); err != nil {
		return err
	}
	if err := s.participation.SetMuted(conversationID, userID, muted); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

// MarkRead advances the caller's read marker. With a nil messageID it moves to
// the highest visible message id; otherwise the message must be visible to the caller.
func (s *ConversationService) MarkRead(conversationID, userID uint, messageID *uint) (*ReadState, error) {
	conversation, err := s.load(conversationID)
	if err != nil {
		return nil, err
	}
	p, err := s.participation.Member(conversationID, userID)
	if err != nil {
		return nil, err
	}
	window := p.Window(conversation.CreatedAt)

	var target uint
	if messageID == nil {
		target, err = s.messages.MaxVisibleID(conversationID, window)
		if err != nil {
			return nil, err
		}
	} else {
		m, err := s.messages.FindByID(*messageID)
		if err != nil {
			if isNotFound(err) {
				return nil, ErrMessageNotFound
			}
			return nil, err
		}
		if m.ConversationID != conversationID || !window.Contains(m.CreatedAt) {
			return nil, ErrMessageNotFound
		}
		target = m.ID
	}

	if target != 0 {
		if _, err := s.participation.AdvanceReadMarker(conversationID, userID, target); err != nil {
			return nil, err
		}
		if target > p.LastReadID() {
			p.LastReadMessageID = &target
		}
		s.invalidate(userID)
	}

	unread, err := s.unread.UnreadCount(conversation, p)
	if err != nil {
		return nil, err
	}
	return &ReadState{LastReadMessageID: p.LastReadID(), UnreadCount: unread}, nil
}

func (s *ConversationService) UnreadCount(conversationID, userID uint) (int64, error) {
	conversation, err := s.load(conversationID)
	if err != nil {
		return 0, err
	}
	p, err := s.participation.Member(conversationID, userID)
	if err != nil {
		return 0, err
	}
	return s.unread.UnreadCount(conversation, p)
}
