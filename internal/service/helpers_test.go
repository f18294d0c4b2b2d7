package service

import (
	"testing"
	"time"

	"github.com/noteduco342/OMChat-backend/internal/models"
)

type publishedEvent struct {
	Channel      string
	Event        string
	Data         interface{}
	ExceptSocket string
	ExceptUser   uint
}

type fakeBroadcaster struct {
	events []publishedEvent
}

func (f *fakeBroadcaster) Publish(channel, event string, data interface{}, exceptSocketID string, exceptUserID uint) {
	f.events = append(f.events, publishedEvent{channel, event, data, exceptSocketID, exceptUserID})
}

func (f *fakeBroadcaster) on(channel string) []publishedEvent {
	var out []publishedEvent
	for _, e := range f.events {
		if e.Channel == channel {
			out = append(out, e)
		}
	}
	return out
}

type fakeListCache struct {
	lists       map[uint][]models.ConversationSummary
	invalidated []uint
}

func newFakeListCache() *fakeListCache {
	return &fakeListCache{lists: make(map[uint][]models.ConversationSummary)}
}

func (f *fakeListCache) GetList(userID uint) ([]models.ConversationSummary, bool) {
	l, ok := f.lists[userID]
	return l, ok
}

func (f *fakeListCache) SetList(userID uint, list []models.ConversationSummary) error {
	f.lists[userID] = list
	return nil
}

func (f *fakeListCache) Invalidate(userIDs ...uint) error {
	for _, id := range userIDs {
		delete(f.lists, id)
		f.invalidated = append(f.invalidated, id)
	}
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// testEnv wires every service over one in-memory store and one clock.
type testEnv struct {
	store         *memStore
	clock         *fakeClock
	broadcaster   *fakeBroadcaster
	cache         *fakeListCache
	users         *MockUserRepository
	conversations *MockConversationRepository
	participants  *MockParticipantRepository
	messages      *MockMessageRepository
	notifications *MockNotificationRepository

	participation   *ParticipationService
	messageSvc      *MessageService
	conversationSvc *ConversationService
	notificationSvc *NotificationService
	maintenance     *MaintenanceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	env := &testEnv{
		store:         store,
		clock:         &fakeClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)},
		broadcaster:   &fakeBroadcaster{},
		cache:         newFakeListCache(),
		users:         &MockUserRepository{store: store},
		conversations: &MockConversationRepository{store: store},
		participants:  &MockParticipantRepository{store: store, setJoinedErr: map[uint]error{}},
		messages:      &MockMessageRepository{store: store},
		notifications: &MockNotificationRepository{store: store, failFor: map[uint]bool{}},
	}

	env.participation = NewParticipationService(env.participants)
	env.participation.now = env.clock.Now
	env.notificationSvc = NewNotificationService(env.notifications, env.broadcaster, nil)
	env.notificationSvc.now = env.clock.Now
	env.messageSvc = NewMessageService(env.conversations, env.messages, env.participation, env.notificationSvc, env.cache, nil)
	env.messageSvc.now = env.clock.Now
	env.conversationSvc = NewConversationService(env.users, env.conversations, env.messages, env.participation, env.cache, nil)
	env.conversationSvc.now = env.clock.Now
	env.maintenance = NewMaintenanceService(env.participants, nil)
	return env
}

func (e *testEnv) addUser(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com"}
	if err := e.users.Create(u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func (e *testEnv) createConversation(t *testing.T, creator uint, others ...uint) *models.Conversation {
	t.Helper()
	res, err := e.conversationSvc.Create(creator, CreateConversationInput{UserIDs: others})
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	return res.Conversation
}

func (e *testEnv) send(t *testing.T, conversationID, authorID uint, body string) *models.Message {
	t.Helper()
	e.clock.Advance(time.Second)
	m, err := e.messageSvc.Append(conversationID, authorID, AppendInput{Body: body})
	if err != nil {
		t.Fatalf("append %q: %v", body, err)
	}
	return m
}
