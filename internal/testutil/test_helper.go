package testutil

import (
	"testing"
	"time"

	"github.com/noteduco342/OMChat-backend/internal/models"
)

// TestJWTSecret is the signing secret SetupTestEnv installs.
const TestJWTSecret = "test-secret-key-for-testing-only"

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestUser creates a test user with default values
func (h *TestHelper) CreateTestUser(id uint, name, email string) *models.User {
	if id == 0 {
		id = 1
	}
	if name == "" {
		name = "Test User"
	}
	if email == "" {
		email = "test@example.com"
	}

	return &models.User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: "hashed_password_123",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// CreateTestMessage creates a text message written by author.
func (h *TestHelper) CreateTestMessage(id, conversationID uint, author *models.User, body string) *models.Message {
	if id == 0 {
		id = 1
	}
	if author == nil {
		author = h.CreateTestUser(1, "", "")
	}
	if body == "" {
		body = "Test message"
	}

	return &models.Message{
		ID:             id,
		ConversationID: conversationID,
		UserID:         author.ID,
		User:           *author,
		Body:           &body,
		Type:           models.TextMessage,
		Metadata:       map[string]interface{}{},
		CreatedAt:      time.Now(),
	}
}

// CreateTestParticipant creates a participant row. A nil leftAt means active.
func (h *TestHelper) CreateTestParticipant(conversationID, userID uint, leftAt *time.Time) *models.Participant {
	joinedAt := time.Now().Add(-time.Hour)
	return &models.Participant{
		ConversationID: conversationID,
		UserID:         userID,
		JoinedAt:       &joinedAt,
		LeftAt:         leftAt,
	}
}

// SetupTestEnv sets the environment config.Load needs. Values are restored
// when the test ends.
func (h *TestHelper) SetupTestEnv() {
	h.t.Setenv("JWT_SECRET", TestJWTSecret)
	h.t.Setenv("CONFIG_FILE", "")
	h.t.Setenv("APP_ENV", "test")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	h.t.Helper()
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	h.t.Helper()
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}
