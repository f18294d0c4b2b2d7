// Command chatctl runs maintenance tasks against the chat database.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/noteduco342/OMChat-backend/internal/config"
	"github.com/noteduco342/OMChat-backend/internal/logger"
	"github.com/noteduco342/OMChat-backend/internal/middleware"
	"github.com/noteduco342/OMChat-backend/internal/repository"
	"github.com/noteduco342/OMChat-backend/internal/service"
	"github.com/noteduco342/OMChat-backend/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const usage = `usage: chatctl <command> [flags]

commands:
  fix-original-participants [-dry-run]   reset joined_at of original participants
  seed                                   create demo users, conversations and messages
  token -user <id> [-email e] [-name n] [-ttl 24h]
                                         print a signed access token
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "chatctl:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.IsDevelopment())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	switch args[0] {
	case "token":
		return runToken(cfg, args[1:], out)
	case "fix-original-participants":
		fs := flag.NewFlagSet("fix-original-participants", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		dryRun := fs.Bool("dry-run", false, "report without writing")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		db, err := repository.InitDB(cfg.DSN())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		return runBackfill(db, *dryRun, log, out)
	case "seed":
		db, err := repository.InitDB(cfg.DSN())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		return runSeed(db, log, out)
	}
	return errUsage
}

func runToken(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	userID := fs.Uint("user", 0, "user id")
	email := fs.String("email", "", "email claim")
	name := fs.String("name", "", "name claim")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil || *userID == 0 {
		return errUsage
	}
	if *email != "" {
		if !validation.ValidateEmail(*email) {
			return fmt.Errorf("invalid email %q", *email)
		}
		*email = validation.NormalizeEmail(*email)
	}

	token, err := middleware.IssueToken(cfg.JWTSecret, *userID, *email, *name, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

func runBackfill(db *gorm.DB, dryRun bool, log *zap.Logger, out io.Writer) error {
	maintenance := service.NewMaintenanceService(repository.NewParticipantRepository(db), log)
	report, err := maintenance.FixOriginalParticipants(dryRun)
	if err != nil {
		return err
	}

	verb := "fixed"
	if dryRun {
		verb = "would fix"
	}
	fmt.Fprintf(out, "scanned %d participants\n", report.Scanned)
	fmt.Fprintf(out, "%s %d with null joined_at\n", verb, report.FixedNull)
	fmt.Fprintf(out, "%s %d joined shortly after creation\n", verb, report.FixedWindow)
	fmt.Fprintf(out, "%d still null\n", report.RemainingNull)
	return nil
}
