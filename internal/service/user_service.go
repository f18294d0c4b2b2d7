package service

import (
	"strings"

	"github.com/noteduco342/OMChat-backend/internal/models"
	"github.com/noteduco342/OMChat-backend/internal/repository"
)

const maxUserListLimit = 500

// PresenceChecker reports whether a user currently holds a realtime connection.
type PresenceChecker interface {
	IsOnline(userID uint) bool
}

type UserService struct {
	userRepo repository.UserRepositoryInterface
	presence PresenceChecker
}

// NewUserService builds the user directory. presence may be nil, in which
// case every user is reported offline.
func NewUserService(userRepo repository.UserRepositoryInterface, presence PresenceChecker) *UserService {
	return &UserService{userRepo: userRepo, presence: presence}
}

// AvailableUser is a user the caller can start a conversation with.
type AvailableUser struct {
	models.UserResponse
	Online bool `json:"online"`
}

func (s *UserService) GetUserByID(userID uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ListAvailable returns every user except the caller, optionally filtered by
// a name or email fragment. A zero limit lists everyone.
func (s *UserService) ListAvailable(callerID uint, query string, limit int) ([]AvailableUser, error) {
	query = strings.TrimSpace(strings.ToLower(query))
	if limit < 0 {
		limit = 0
	}
	if limit > maxUserListLimit {
		limit = maxUserListLimit
	}
	users, err := s.userRepo.ListOthers(callerID, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]AvailableUser, 0, len(users))
	for i := range users {
		out = append(out, AvailableUser{
			UserResponse: users[i].ToResponse(),
			Online:       s.presence != nil && s.presence.IsOnline(users[i].ID),
		})
	}
	return out, nil
}
