package service

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/noteduco342/OMChat-backend/internal/models"
	"github.com/noteduco342/OMChat-backend/internal/repository"
	"gorm.io/gorm"
)

// memStore backs every mock repository so that associations resolve the way
// gorm preloads would.
type memStore struct {
	users         map[uint]*models.User
	conversations map[uint]*models.Conversation
	participants  []*models.Participant
	messages      []*models.Message
	notifications []*models.Notification

	nextUserID         uint
	nextConversationID uint
	nextParticipantID  uint
	nextMessageID      uint
	nextAttachmentID   uint
	nextNotificationID uint
}

func newMemStore() *memStore {
	return &memStore{
		users:              make(map[uint]*models.User),
		conversations:      make(map[uint]*models.Conversation),
		nextUserID:         1,
		nextConversationID: 1,
		nextParticipantID:  1,
		nextMessageID:      1,
		nextAttachmentID:   1,
		nextNotificationID: 1,
	}
}

func (s *memStore) user(id uint) models.User {
	if u, ok := s.users[id]; ok {
		return *u
	}
	return models.User{}
}

func (s *memStore) participantsOf(conversationID uint) []models.Participant {
	var out []models.Participant
	for _, p := range s.participants {
		if p.ConversationID == conversationID {
			cp := *p
			cp.User = s.user(p.UserID)
			out = append(out, cp)
		}
	}
	return out
}

func (s *memStore) findParticipant(conversationID, userID uint) *models.Participant {
	for _, p := range s.participants {
		if p.ConversationID == conversationID && p.UserID == userID {
			return p
		}
	}
	return nil
}

func (s *memStore) conversationCopy(c *models.Conversation) models.Conversation {
	cp := *c
	cp.Participants = s.participantsOf(c.ID)
	return cp
}

func (s *memStore) messageCopy(m *models.Message) models.Message {
	cp := *m
	cp.User = s.user(m.UserID)
	cp.Attachments = append([]models.Attachment(nil), m.Attachments...)
	return cp
}

func (s *memStore) visible(conversationID uint, window models.VisibilityWindow) []*models.Message {
	var out []*models.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID && window.Contains(m.CreatedAt) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// MockUserRepository implements repository.UserRepositoryInterface.
type MockUserRepository struct {
	store *memStore
}

func (m *MockUserRepository) Create(user *models.User) error {
	for _, u := range m.store.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == 0 {
		user.ID = m.store.nextUserID
		m.store.nextUserID++
	}
	m.store.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) FindByID(id uint) (*models.User, error) {
	if u, ok := m.store.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByIDs(ids []uint) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if u, ok := m.store.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *MockUserRepository) FindByEmail(email string) (*models.User, error) {
	for _, u := range m.store.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) ListOthers(excludeID uint, query string, limit int) ([]models.User, error) {
	var out []models.User
	for _, u := range m.store.users {
		if u.ID == excludeID {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(u.Name), query) && !strings.Contains(strings.ToLower(u.Email), query) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MockConversationRepository implements repository.ConversationRepositoryInterface.
type MockConversationRepository struct {
	store *memStore
	// hideDirectLookups makes FindByDirectKey miss this many times, to mimic a
	// concurrent creator winning the direct_key race.
	hideDirectLookups int
}

func (m *MockConversationRepository) CreateWithParticipants(conversation *models.Conversation, participants []models.Participant) error {
	if conversation.DirectKey != nil {
		for _, c := range m.store.conversations {
			if c.DirectKey != nil && *c.DirectKey == *conversation.DirectKey {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	conversation.ID = m.store.nextConversationID
	m.store.nextConversationID++
	stored := *conversation
	stored.Participants = nil
	m.store.conversations[conversation.ID] = &stored

	for i := range participants {
		participants[i].ConversationID = conversation.ID
		participants[i].ID = m.store.nextParticipantID
		m.store.nextParticipantID++
		p := participants[i]
		m.store.participants = append(m.store.participants, &p)
	}
	conversation.Participants = participants
	return nil
}

func (m *MockConversationRepository) FindByID(id uint) (*models.Conversation, error) {
	c, ok := m.store.conversations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.store.conversationCopy(c)
	return &cp, nil
}

func (m *MockConversationRepository) FindByDirectKey(key string) (*models.Conversation, error) {
	if m.hideDirectLookups > 0 {
		m.hideDirectLookups--
		return nil, gorm.ErrRecordNotFound
	}
	for _, c := range m.store.conversations {
		if !c.IsGroup && c.DirectKey != nil && *c.DirectKey == key {
			cp := m.store.conversationCopy(c)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockConversationRepository) FindByIDs(ids []uint) ([]models.Conversation, error) {
	var out []models.Conversation
	for _, id := range ids {
		if c, ok := m.store.conversations[id]; ok {
			out = append(out, m.store.conversationCopy(c))
		}
	}
	return out, nil
}

// MockParticipantRepository implements repository.ParticipantRepositoryInterface.
type MockParticipantRepository struct {
	store        *memStore
	setJoinedErr map[uint]error
}

func (m *MockParticipantRepository) Attach(participants []models.Participant) error {
	for _, p := range participants {
		if m.store.findParticipant(p.ConversationID, p.UserID) != nil {
			return gorm.ErrDuplicatedKey
		}
	}
	for i := range participants {
		participants[i].ID = m.store.nextParticipantID
		m.store.nextParticipantID++
		p := participants[i]
		m.store.participants = append(m.store.participants, &p)
	}
	return nil
}

func (m *MockParticipantRepository) Find(conversationID, userID uint) (*models.Participant, error) {
	p := m.store.findParticipant(conversationID, userID)
	if p == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	cp.User = m.store.user(p.UserID)
	return &cp, nil
}

func (m *MockParticipantRepository) ListByConversation(conversationID uint) ([]models.Participant, error) {
	return m.store.participantsOf(conversationID), nil
}

func (m *MockParticipantRepository) ListByUser(userID uint) ([]models.Participant, error) {
	var out []models.Participant
	for _, p := range m.store.participants {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *MockParticipantRepository) MarkLeft(conversationID, userID uint, at time.Time) (bool, error) {
	p := m.store.findParticipant(conversationID, userID)
	if p == nil || p.LeftAt != nil {
		return false, nil
	}
	p.LeftAt = &at
	return true, nil
}

func (m *MockParticipantRepository) SetMuted(conversationID, userID uint, muted bool) error {
	if p := m.store.findParticipant(conversationID, userID); p != nil {
		p.IsMuted = muted
	}
	return nil
}

func (m *MockParticipantRepository) AdvanceReadMarker(conversationID, userID, messageID uint) (bool, error) {
	p := m.store.findParticipant(conversationID, userID)
	if p == nil {
		return false, nil
	}
	if p.LastReadMessageID != nil && *p.LastReadMessageID >= messageID {
		return false, nil
	}
	id := messageID
	p.LastReadMessageID = &id
	return true, nil
}

func (m *MockParticipantRepository) ScanJoinedAt(afterID uint, limit int) ([]repository.JoinedAtRow, error) {
	var out []repository.JoinedAtRow
	sorted := append([]*models.Participant(nil), m.store.participants...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, p := range sorted {
		if p.ID <= afterID {
			continue
		}
		c := m.store.conversations[p.ConversationID]
		row := repository.JoinedAtRow{
			ParticipantID:         p.ID,
			ConversationID:        p.ConversationID,
			UserID:                p.UserID,
			ConversationCreatedAt: c.CreatedAt,
		}
		if p.JoinedAt != nil {
			at := *p.JoinedAt
			row.JoinedAt = &at
		}
		out = append(out, row)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockParticipantRepository) SetJoinedAt(participantID uint, joinedAt time.Time) error {
	if err := m.setJoinedErr[participantID]; err != nil {
		return err
	}
	for _, p := range m.store.participants {
		if p.ID == participantID {
			at := joinedAt
			p.JoinedAt = &at
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// MockMessageRepository implements repository.MessageRepositoryInterface.
type MockMessageRepository struct {
	store     *memStore
	createErr error
}

func (m *MockMessageRepository) Create(message *models.Message) error {
	if m.createErr != nil {
		return m.createErr
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	message.ID = m.store.nextMessageID
	m.store.nextMessageID++
	for i := range message.Attachments {
		message.Attachments[i].ID = m.store.nextAttachmentID
		message.Attachments[i].MessageID = message.ID
		m.store.nextAttachmentID++
	}
	stored := *message
	m.store.messages = append(m.store.messages, &stored)
	if c, ok := m.store.conversations[message.ConversationID]; ok {
		c.UpdatedAt = message.CreatedAt
	}
	return nil
}

func (m *MockMessageRepository) FindByID(id uint) (*models.Message, error) {
	for _, msg := range m.store.messages {
		if msg.ID == id {
			cp := m.store.messageCopy(msg)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockMessageRepository) FindByIDs(ids []uint) ([]models.Message, error) {
	var out []models.Message
	for _, id := range ids {
		if msg, err := m.FindByID(id); err == nil {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *MockMessageRepository) ListVisible(conversationID uint, window models.VisibilityWindow) ([]models.Message, error) {
	var out []models.Message
	for _, msg := range m.store.visible(conversationID, window) {
		out = append(out, m.store.messageCopy(msg))
	}
	return out, nil
}

func (m *MockMessageRepository) MaxVisibleID(conversationID uint, window models.VisibilityWindow) (uint, error) {
	var max uint
	for _, msg := range m.store.visible(conversationID, window) {
		if msg.ID > max {
			max = msg.ID
		}
	}
	return max, nil
}

func (m *MockMessageRepository) CountUnread(q repository.UnreadQuery) (int64, error) {
	var n int64
	for _, msg := range m.store.visible(q.ConversationID, q.Window) {
		if msg.ID > q.AfterID && msg.UserID != q.UserID {
			n++
		}
	}
	return n, nil
}

func (m *MockMessageRepository) ConversationDigests(userID uint, queries []repository.UnreadQuery) ([]repository.ConversationDigestRow, error) {
	var out []repository.ConversationDigestRow
	for _, q := range queries {
		var total int64
		for _, msg := range m.store.messages {
			if msg.ConversationID == q.ConversationID {
				total++
			}
		}
		if total == 0 {
			continue
		}
		row := repository.ConversationDigestRow{ConversationID: q.ConversationID, MessagesCount: total}
		if v := m.store.visible(q.ConversationID, q.Window); len(v) > 0 {
			row.LatestMessageID = v[len(v)-1].ID
			row.UnreadCount, _ = m.CountUnread(repository.UnreadQuery{
				ConversationID: q.ConversationID,
				UserID:         userID,
				AfterID:        q.AfterID,
				Window:         q.Window,
			})
		}
		out = append(out, row)
	}
	return out, nil
}

// MockNotificationRepository implements repository.NotificationRepositoryInterface.
type MockNotificationRepository struct {
	store   *memStore
	failFor map[uint]bool
}

func (m *MockNotificationRepository) Create(n *models.Notification) error {
	if m.failFor[n.UserID] {
		return errors.New("insert failed")
	}
	n.ID = m.store.nextNotificationID
	m.store.nextNotificationID++
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	stored := *n
	m.store.notifications = append(m.store.notifications, &stored)
	return nil
}

func (m *MockNotificationRepository) FindForUser(userID, id uint) (*models.Notification, error) {
	for _, n := range m.store.notifications {
		if n.ID == id && n.UserID == userID {
			cp := *n
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockNotificationRepository) ListForUser(userID uint, notificationType models.NotificationType, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for i := len(m.store.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		n := m.store.notifications[i]
		if n.UserID == userID && n.Type == notificationType {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *MockNotificationRepository) CountUnread(userID uint) (int64, error) {
	var c int64
	for _, n := range m.store.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			c++
		}
	}
	return c, nil
}

func (m *MockNotificationRepository) MarkRead(id uint, at time.Time) error {
	for _, n := range m.store.notifications {
		if n.ID == id && n.ReadAt == nil {
			t := at
			n.ReadAt = &t
		}
	}
	return nil
}

func (m *MockNotificationRepository) MarkAllRead(userID uint, at time.Time) (int64, error) {
	var c int64
	for _, n := range m.store.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			t := at
			n.ReadAt = &t
			c++
		}
	}
	return c, nil
}

func (m *MockNotificationRepository) forUser(userID uint) []*models.Notification {
	var out []*models.Notification
	for _, n := range m.store.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
