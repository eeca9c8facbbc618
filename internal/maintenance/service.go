package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plainsql/plainsql/internal/config"
	"github.com/plainsql/plainsql/internal/session"
	"github.com/plainsql/plainsql/internal/storage"
)

// Sessions is the slice of a session backend the janitor needs.
type Sessions interface {
	session.Lister
	Delete(ctx context.Context, token string) error
}

type Config struct {
	SessionTTL        time.Duration
	RetentionInterval time.Duration
	IntegrityInterval time.Duration
	BatchSize         int
}

func FromConfig(cfg config.MaintenanceConfig) Config {
	return Config{
		SessionTTL:        cfg.SessionTTL,
		RetentionInterval: cfg.RetentionInterval,
		IntegrityInterval: cfg.IntegrityInterval,
		BatchSize:         cfg.SweepBatchSize,
	}
}

// Service expires old upload sessions and checks that live sessions still have
// their database file in the object store.
type Service struct {
	Sessions    Sessions
	ObjectStore storage.ObjectStore
	Config      Config
	Logger      *slog.Logger
	Clock       func() time.Time
}

type RetentionSummary struct {
	CandidateSessions int `json:"candidate_sessions"`
	SessionsExpired   int `json:"sessions_expired"`
	ObjectsDeleted    int `json:"objects_deleted"`
	Failures          int `json:"failures"`
}

type IntegritySummary struct {
	SessionsChecked     int `json:"sessions_checked"`
	MissingFiles        int `json:"missing_files"`
	EmptyFiles          int `json:"empty_files"`
	OperationalFailures int `json:"operational_failures"`
}

func (s *Service) Run(ctx context.Context) error {
	s.ensureDefaults()

	var retention <-chan time.Time
	if s.Config.SessionTTL > 0 {
		retentionTicker := time.NewTicker(s.Config.RetentionInterval)
		defer retentionTicker.Stop()
		retention = retentionTicker.C
	}
	integrityTicker := time.NewTicker(s.Config.IntegrityInterval)
	defer integrityTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-retention:
			summary, err := s.RunRetentionOnce(ctx)
			if err != nil {
				if s.Logger != nil {
					s.Logger.ErrorContext(ctx, "retention cycle failed", slog.Any("error", err), slog.Any("summary", summary))
				}
				continue
			}
			if s.Logger != nil && summary.CandidateSessions > 0 {
				s.Logger.InfoContext(ctx, "retention cycle completed", slog.Any("summary", summary))
			}
		case <-integrityTicker.C:
			summary, err := s.RunIntegrityCheckOnce(ctx)
			if err != nil {
				if s.Logger != nil {
					s.Logger.ErrorContext(ctx, "integrity cycle failed", slog.Any("error", err), slog.Any("summary", summary))
				}
				continue
			}
			if s.Logger != nil {
				s.Logger.DebugContext(ctx, "integrity cycle completed", slog.Any("summary", summary))
			}
		}
	}
}

// RunRetentionOnce removes sessions older than SessionTTL together with every
// object stored under their prefix. The session row goes last so a failed
// object cleanup is retried on the next cycle.
func (s *Service) RunRetentionOnce(ctx context.Context) (RetentionSummary, error) {
	s.ensureDefaults()
	if s.Sessions == nil {
		return RetentionSummary{}, fmt.Errorf("session store is required")
	}
	if s.ObjectStore == nil {
		return RetentionSummary{}, fmt.Errorf("object store is required")
	}
	if s.Config.SessionTTL <= 0 {
		return RetentionSummary{}, nil
	}

	cutoff := s.Clock().Add(-s.Config.SessionTTL)
	candidates, err := s.Sessions.ListCreatedBefore(ctx, cutoff, s.Config.BatchSize)
	if err != nil {
		retentionRunsTotal.WithLabelValues("failed").Inc()
		return RetentionSummary{}, fmt.Errorf("list expired sessions: %w", err)
	}

	summary := RetentionSummary{CandidateSessions: len(candidates)}
	failures := make([]string, 0)
	for _, candidate := range candidates {
		prefix, err := storage.SessionPrefix(candidate.Token)
		if err != nil {
			summary.Failures++
			failures = append(failures, fmt.Sprintf("session %s prefix: %v", candidate.Token, err))
			continue
		}
		deleted, err := s.ObjectStore.DeletePrefix(ctx, prefix)
		summary.ObjectsDeleted += deleted
		if err != nil {
			summary.Failures++
			failures = append(failures, fmt.Sprintf("session %s delete objects: %v", candidate.Token, err))
			continue
		}
		if err := s.Sessions.Delete(ctx, candidate.Token); err != nil && !errors.Is(err, session.ErrNotFound) {
			summary.Failures++
			failures = append(failures, fmt.Sprintf("session %s delete row: %v", candidate.Token, err))
			continue
		}
		summary.SessionsExpired++
	}

	if summary.SessionsExpired > 0 {
		sessionsExpiredTotal.Add(float64(summary.SessionsExpired))
	}
	if summary.ObjectsDeleted > 0 {
		objectsDeletedTotal.Add(float64(summary.ObjectsDeleted))
	}
	if len(failures) > 0 {
		retentionRunsTotal.WithLabelValues("failed").Inc()
		return summary, fmt.Errorf("retention encountered %d failure(s): %s", len(failures), strings.Join(failures, "; "))
	}
	retentionRunsTotal.WithLabelValues("completed").Inc()
	return summary, nil
}

// RunIntegrityCheckOnce stats the database object of up to BatchSize sessions,
// oldest first.
func (s *Service) RunIntegrityCheckOnce(ctx context.Context) (IntegritySummary, error) {
	s.ensureDefaults()
	if s.Sessions == nil {
		return IntegritySummary{}, fmt.Errorf("session store is required")
	}
	if s.ObjectStore == nil {
		return IntegritySummary{}, fmt.Errorf("object store is required")
	}

	sessions, err := s.Sessions.ListCreatedBefore(ctx, s.Clock(), s.Config.BatchSize)
	if err != nil {
		integrityRunsTotal.WithLabelValues("failed").Inc()
		return IntegritySummary{}, fmt.Errorf("list sessions: %w", err)
	}

	summary := IntegritySummary{}
	const maxIssueSamples = 20
	issueSamples := make([]string, 0, maxIssueSamples)
	issueCount := 0
	addIssue := func(message string) {
		issueCount++
		if len(issueSamples) < maxIssueSamples {
			issueSamples = append(issueSamples, message)
		}
	}

	for _, item := range sessions {
		summary.SessionsChecked++
		info, err := s.ObjectStore.Stat(ctx, item.ObjectKey)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				summary.MissingFiles++
				addIssue(fmt.Sprintf("session %s missing file %s", item.Token, item.ObjectKey))
				continue
			}
			summary.OperationalFailures++
			addIssue(fmt.Sprintf("session %s stat file %s: %v", item.Token, item.ObjectKey, err))
			continue
		}
		if info.Size == 0 {
			summary.EmptyFiles++
			addIssue(fmt.Sprintf("session %s empty file %s", item.Token, item.ObjectKey))
		}
	}

	if summary.MissingFiles > 0 {
		integrityMissingFilesTotal.Add(float64(summary.MissingFiles))
	}
	if summary.MissingFiles > 0 || summary.EmptyFiles > 0 || summary.OperationalFailures > 0 {
		integrityRunsTotal.WithLabelValues("failed").Inc()
		extra := issueCount - len(issueSamples)
		if extra > 0 {
			return summary, fmt.Errorf("integrity check found %d issue(s): %s; ... plus %d more", issueCount, strings.Join(issueSamples, "; "), extra)
		}
		return summary, fmt.Errorf("integrity check found %d issue(s): %s", issueCount, strings.Join(issueSamples, "; "))
	}
	integrityRunsTotal.WithLabelValues("completed").Inc()
	return summary, nil
}

func (s *Service) ensureDefaults() {
	if s.Clock == nil {
		s.Clock = time.Now
	}
	if s.Config.RetentionInterval <= 0 {
		s.Config.RetentionInterval = 10 * time.Minute
	}
	if s.Config.IntegrityInterval <= 0 {
		s.Config.IntegrityInterval = 30 * time.Minute
	}
	if s.Config.BatchSize <= 0 {
		s.Config.BatchSize = 500
	}
}
