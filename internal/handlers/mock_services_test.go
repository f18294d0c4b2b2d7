package handlers

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/noteduco342/OMChat-backend/internal/models"
	"github.com/noteduco342/OMChat-backend/internal/service"
	"github.com/noteduco342/OMChat-backend/internal/storage"
	"github.com/noteduco342/OMChat-backend/internal/testutil"
)

type mockConversations struct {
	err          error
	created      *service.CreateConversationResult
	createInput  service.CreateConversationInput
	readMessage  *uint
	readCalled   bool
	mutedTo      *bool
	addedUserIDs []uint
}

func (m *mockConversations) ListForUser(userID uint) ([]models.ConversationSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []models.ConversationSummary{{ID: 1, DisplayTitle: "Bob"}}, nil
}

func (m *mockConversations) Create(creatorID uint, in service.CreateConversationInput) (*service.CreateConversationResult, error) {
	m.createInput = in
	if m.err != nil {
		return nil, m.err
	}
	return m.created, nil
}

func (m *mockConversations) Get(conversationID, userID uint) (*service.ConversationDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &service.ConversationDetail{DisplayTitle: "Bob"}, nil
}

func (m *mockConversations) AddParticipants(conversationID, actorID uint, userIDs []uint) ([]models.Participant, error) {
	m.addedUserIDs = userIDs
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Participant, 0, len(userIDs))
	for _, id := range userIDs {
		out = append(out, models.Participant{ConversationID: conversationID, UserID: id})
	}
	return out, nil
}

func (m *mockConversations) Leave(conversationID, userID uint) error {
	return m.err
}

func (m *mockConversations) Mute(conversationID, userID uint, muted bool) error {
	m.mutedTo = &muted
	return m.err
}

func (m *mockConversations) MarkRead(conversationID, userID uint, messageID *uint) (*service.ReadState, error) {
	m.readCalled = true
	m.readMessage = messageID
	if m.err != nil {
		return nil, m.err
	}
	return &service.ReadState{LastReadMessageID: 9}, nil
}

type mockMessages struct {
	t        *testing.T
	err      error
	appended service.AppendInput
	authorID uint
}

func (m *mockMessages) Append(conversationID, authorID uint, in service.AppendInput) (*models.Message, error) {
	m.appended = in
	m.authorID = authorID
	if m.err != nil {
		return nil, m.err
	}
	author := testutil.NewTestHelper(m.t).CreateTestUser(authorID, "Alice", "alice@example.com")
	return testutil.NewTestHelper(m.t).CreateTestMessage(42, conversationID, author, in.Body), nil
}

func (m *mockMessages) ListVisible(conversationID, userID uint) ([]models.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	h := testutil.NewTestHelper(m.t)
	return []models.Message{
		*h.CreateTestMessage(1, conversationID, nil, "first"),
		*h.CreateTestMessage(2, conversationID, nil, "second"),
	}, nil
}

type mockAttachments struct {
	saveErr   error
	saved     []string
	discarded []*storage.StoredAttachment
}

func (m *mockAttachments) Save(ctx context.Context, name, declaredType string, r io.Reader) (*storage.StoredAttachment, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.saved = append(m.saved, name)
	return &storage.StoredAttachment{
		Path:         "attachments/" + strings.ToLower(name),
		MimeType:     declaredType,
		Size:         int64(len(data)),
		OriginalName: name,
	}, nil
}

func (m *mockAttachments) Discard(ctx context.Context, stored []*storage.StoredAttachment) {
	m.discarded = append(m.discarded, stored...)
}

type mockNotifications struct {
	err     error
	updated int64
}

func (m *mockNotifications) List(userID uint) (*service.NotificationList, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &service.NotificationList{Notifications: []models.NotificationResponse{}, UnreadCount: 3}, nil
}

func (m *mockNotifications) MarkRead(userID, notificationID uint) (*models.Notification, error) {
	if m.err != nil {
		return nil, m.err
	}
	return models.NewNotification(userID, models.MessageNotificationData{MessageID: 1, ConversationID: 2})
}

func (m *mockNotifications) MarkAllRead(userID uint) (int64, error) {
	return m.updated, m.err
}

type mockUsers struct {
	err    error
	caller uint
	query  string
	limit  int
}

func (m *mockUsers) ListAvailable(callerID uint, query string, limit int) ([]service.AvailableUser, error) {
	m.caller, m.query, m.limit = callerID, query, limit
	if m.err != nil {
		return nil, m.err
	}
	bob := models.User{ID: 2, Name: "Bob", Email: "bob@example.com"}
	return []service.AvailableUser{{UserResponse: bob.ToResponse(), Online: true}}, nil
}

type mockUserLookup struct {
	users map[uint]*models.User
	err   error
}

func (m *mockUserLookup) GetUserByID(userID uint) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[userID]; ok {
		return u, nil
	}
	return nil, service.ErrUserNotFound
}

type mockObjects struct {
	data []byte
	stat storage.ObjectStat
	err  error
	keys []string
}

func (m *mockObjects) GetObject(ctx context.Context, key string) (io.ReadCloser, storage.ObjectStat, error) {
	m.keys = append(m.keys, key)
	if m.err != nil {
		return nil, storage.ObjectStat{}, m.err
	}
	return io.NopCloser(strings.NewReader(string(m.data))), m.stat, nil
}
