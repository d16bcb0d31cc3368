package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"voteflow-backend/internal/logger"
	"voteflow-backend/internal/metrics"
	"voteflow-backend/internal/models"
	"voteflow-backend/internal/timeutil"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrSessionNotFound = errors.New("import session not found")

// Committer receives the rows an import reports as successful.
type Committer interface {
	ImportMembers(ctx context.Context, rows []models.CSVMember) error
}

// Archiver keeps a copy of each accepted upload.
type Archiver interface {
	Archive(ctx context.Context, sessionID, fileName string, data []byte) error
}

type Options struct {
	MaxFileBytes int64
	PreviewRows  int
	Latency      time.Duration
}

// Service owns the import sessions.
type Service struct {
	opts      Options
	committer Committer
	archiver  Archiver

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates the importer. committer and archiver may be nil.
func NewService(opts Options, committer Committer, archiver Archiver) *Service {
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = MaxFileBytes
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 10
	}
	return &Service{
		opts:      opts,
		committer: committer,
		archiver:  archiver,
		sessions:  make(map[string]*Session),
	}
}

// Start opens a new session in the upload step.
func (s *Service) Start() *Session {
	sess := newSession(uuid.NewString())
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	metrics.ImportSessionsActive.Set(float64(n))
	return sess
}

func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Upload validates and parses a file into the session. On success it
// returns the number of accepted rows.
func (s *Service) Upload(ctx context.Context, id, fileName, contentType string, data []byte) (int, error) {
	sess, err := s.Get(id)
	if err != nil {
		return 0, err
	}
	if err := ValidateUpload(fileName, contentType, int64(len(data)), s.opts.MaxFileBytes); err != nil {
		return 0, err
	}
	if sess.Step() != StepUpload {
		return 0, fmt.Errorf("upload: %w", ErrWrongStep)
	}

	rows := Parse(string(data))
	if err := sess.load(fileName, rows); err != nil {
		return 0, err
	}

	log := logger.For("importer").WithField("session", id)
	log.WithField("rows", len(rows)).Infof("[Import] Parsed %s", fileName)

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, id, fileName, data); err != nil {
			log.WithError(err).Warn("[Import] Failed to archive upload")
		}
	}
	return len(rows), nil
}

// Preview returns the configured number of leading rows.
func (s *Service) Preview(id string) (Preview, error) {
	sess, err := s.Get(id)
	if err != nil {
		return Preview{}, err
	}
	return sess.Preview(s.opts.PreviewRows)
}

// Confirm runs the simulated import and moves the session to results.
func (s *Service) Confirm(ctx context.Context, id string) (models.ImportResult, error) {
	sess, err := s.Get(id)
	if err != nil {
		return models.ImportResult{}, err
	}

	res, accepted, err := sess.run(ctx, s.opts.Latency)
	if err != nil {
		return models.ImportResult{}, err
	}

	log := logger.For("importer").WithField("session", id)
	if s.committer != nil && len(accepted) > 0 {
		if err := s.committer.ImportMembers(ctx, accepted); err != nil {
			log.WithError(err).Error("[Import] Failed to commit imported members")
		}
	}
	sess.finish(res)

	metrics.ImportRowsTotal.WithLabelValues("success").Add(float64(res.Success))
	metrics.ImportRowsTotal.WithLabelValues("failed").Add(float64(res.Failed))
	log.WithFields(logrus.Fields{
		"success": res.Success,
		"failed":  res.Failed,
	}).Info("[Import] Completed")
	return res, nil
}

// Reset sends the session back to upload ("Import Another File" / cancel).
func (s *Service) Reset(id string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	return sess.Reset()
}

// Close drops a session entirely.
func (s *Service) Close(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	metrics.ImportSessionsActive.Set(float64(n))
}

// PurgeIdle removes sessions untouched for longer than ttl, skipping any
// with an import in flight.
func (s *Service) PurgeIdle(ttl time.Duration) int {
	cutoff := timeutil.Now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for id, sess := range s.sessions {
		if sess.Step() == StepImport {
			continue
		}
		if sess.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			purged++
		}
	}
	metrics.ImportSessionsActive.Set(float64(len(s.sessions)))
	return purged
}

// Active reports how many sessions are held.
func (s *Service) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
