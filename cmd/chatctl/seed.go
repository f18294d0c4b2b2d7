package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/noteduco342/OMChat-backend/internal/models"
	"github.com/noteduco342/OMChat-backend/internal/repository"
	"github.com/noteduco342/OMChat-backend/internal/service"
	"github.com/noteduco342/OMChat-backend/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const seedPassword = "password"

type seedUser struct {
	Name  string
	Email string
}

var seedUsers = []seedUser{
	{Name: "Alice", Email: "alice@example.com"},
	{Name: "Bob", Email: "bob@example.com"},
	{Name: "Charlie", Email: "charlie@example.com"},
}

const seedGroupTitle = "Weekend plans"

func ensureUser(users *repository.UserRepository, u seedUser, hash string) (*models.User, bool, error) {
	email := validation.NormalizeEmail(u.Email)
	existing, err := users.FindByEmail(email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	user := &models.User{Name: u.Name, Email: email, PasswordHash: hash}
	if err := users.Create(user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// runSeed is idempotent: users are matched by email, the direct conversation by
// its pair key and the group by title.
func runSeed(db *gorm.DB, log *zap.Logger, out io.Writer) error {
	users := repository.NewUserRepository(db)
	conversations := repository.NewConversationRepository(db)
	messages := repository.NewMessageRepository(db)

	participation := service.NewParticipationService(repository.NewParticipantRepository(db))
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), nil, log)
	conversationService := service.NewConversationService(users, conversations, messages, participation, nil, log)
	messageService := service.NewMessageService(conversations, messages, participation, notifications, nil, log)

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	seeded := make([]*models.User, 0, len(seedUsers))
	for _, u := range seedUsers {
		user, created, err := ensureUser(users, u, string(hash))
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		if created {
			fmt.Fprintf(out, "created user %s (id %d)\n", user.Email, user.ID)
		}
		seeded = append(seeded, user)
	}
	alice, bob, charlie := seeded[0], seeded[1], seeded[2]

	direct, err := conversationService.Create(alice.ID, service.CreateConversationInput{UserIDs: []uint{bob.ID}})
	if err != nil {
		return fmt.Errorf("seed direct conversation: %w", err)
	}
	if !direct.Existing {
		script := []struct {
			author uint
			body   string
		}{
			{alice.ID, "Hey Bob, are you around this weekend?"},
			{bob.ID, "Yes! What do you have in mind?"},
			{alice.ID, "Thinking about a hike. I'll start a group with Charlie."},
		}
		for _, line := range script {
			if _, err := messageService.Append(direct.Conversation.ID, line.author, service.AppendInput{Body: line.body}); err != nil {
				return fmt.Errorf("seed direct message: %w", err)
			}
		}
		fmt.Fprintf(out, "created direct conversation %d\n", direct.Conversation.ID)
	}

	summaries, err := conversationService.ListForUser(alice.ID)
	if err != nil {
		return err
	}
	for _, s := range summaries {
		if s.IsGroup && s.Title != nil && *s.Title == seedGroupTitle {
			fmt.Fprintln(out, "seed data already present")
			return nil
		}
	}

	title := seedGroupTitle
	group, err := conversationService.Create(alice.ID, service.CreateConversationInput{
		UserIDs: []uint{bob.ID, charlie.ID},
		Title:   &title,
	})
	if err != nil {
		return fmt.Errorf("seed group conversation: %w", err)
	}
	script := []struct {
		author uint
		body   string
	}{
		{alice.ID, "Welcome to the weekend plans group!"},
		{charlie.ID, "Count me in."},
		{bob.ID, "Saturday morning works for me."},
	}
	for _, line := range script {
		if _, err := messageService.Append(group.Conversation.ID, line.author, service.AppendInput{Body: line.body}); err != nil {
			return fmt.Errorf("seed group message: %w", err)
		}
	}
	fmt.Fprintf(out, "created group conversation %d\n", group.Conversation.ID)
	return nil
}
