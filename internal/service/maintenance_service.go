package service

import (
	"time"

	"github.com/noteduco342/OMChat-backend/internal/metrics"
	"github.com/noteduco342/OMChat-backend/internal/repository"
	"go.uber.org/zap"
)

// OriginalParticipantWindow is how long after a conversation's creation a
// joined_at still counts as "added together with the conversation".
const OriginalParticipantWindow = 600 * time.Second

const defaultBackfillBatch = 500

type BackfillReason string

const (
	BackfillNone   BackfillReason = ""
	BackfillNull   BackfillReason = "null"
	BackfillWindow BackfillReason = "window"
)

// BackfillDecision reports whether a participant's joined_at should be reset to
// the conversation's created_at.
func BackfillDecision(row repository.JoinedAtRow) BackfillReason {
	if row.JoinedAt == nil {
		return BackfillNull
	}
	delta := row.JoinedAt.Sub(row.ConversationCreatedAt)
	if delta > 0 && delta <= OriginalParticipantWindow {
		return BackfillWindow
	}
	return BackfillNone
}

type BackfillReport struct {
	Scanned       int  `json:"scanned"`
	FixedNull     int  `json:"fixed_null"`
	FixedWindow   int  `json:"fixed_window"`
	RemainingNull int  `json:"remaining_null"`
	DryRun        bool `json:"dry_run"`
}

type MaintenanceService struct {
	participants repository.ParticipantRepositoryInterface
	logger       *zap.Logger
	batchSize    int
}

func NewMaintenanceService(participants repository.ParticipantRepositoryInterface, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{participants: participants, logger: logger, batchSize: defaultBackfillBatch}
}

// FixOriginalParticipants resets joined_at for participants that were part of
// the conversation from the start. Running it twice changes nothing the second time.
func (s *MaintenanceService) FixOriginalParticipants(dryRun bool) (*BackfillReport, error) {
	report := &BackfillReport{DryRun: dryRun}
	var afterID uint
	for {
		rows, err := s.participants.ScanJoinedAt(afterID, s.batchSize)
		if err != nil {
			return report, err
		}
		for _, row := range rows {
			report.Scanned++
			afterID = row.ParticipantID

			reason := BackfillDecision(row)
			if reason == BackfillNone {
				continue
			}
			if dryRun {
				s.count(report, reason)
				if reason == BackfillNull {
					report.RemainingNull++
				}
				continue
			}
			if err := s.participants.SetJoinedAt(row.ParticipantID, row.ConversationCreatedAt); err != nil {
				s.logger.Error("joined_at backfill failed",
					zap.Uint("participant_id", row.ParticipantID),
					zap.Error(err),
				)
				if reason == BackfillNull {
					report.RemainingNull++
				}
				continue
			}
			s.count(report, reason)
			metrics.JoinedAtBackfilled.Inc()
		}
		if len(rows) < s.batchSize {
			break
		}
	}

	s.logger.Info("joined_at backfill finished",
		zap.Bool("dry_run", dryRun),
		zap.Int("scanned", report.Scanned),
		zap.Int("fixed_null", report.FixedNull),
		zap.Int("fixed_window", report.FixedWindow),
		zap.Int("remaining_null", report.RemainingNull),
	)
	return report, nil
}

func (s *MaintenanceService) count(report *BackfillReport, reason BackfillReason) {
	switch reason {
	case BackfillNull:
		report.FixedNull++
	case BackfillWindow:
		report.FixedWindow++
	}
}
