package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"voteflow-backend/internal/models"
	"voteflow-backend/internal/timeutil"
)

type Step string

const (
	StepUpload  Step = "upload"
	StepPreview Step = "preview"
	StepImport  Step = "import"
	StepResults Step = "results"
)

// ErrWrongStep is returned when an action is not valid for the current step.
var ErrWrongStep = errors.New("action not allowed at this step")

// Example errors reported with every simulated import.
var sampleImportErrors = []string{
	"Row 3: Invalid email format",
	"Row 7: Duplicate member ID",
}

// SimulateResult fabricates the outcome of importing n rows: 10% of the
// rows (rounded down) fail and the rest succeed.
func SimulateResult(n int) models.ImportResult {
	failed := n / 10
	errs := make([]string, len(sampleImportErrors))
	copy(errs, sampleImportErrors)
	return models.ImportResult{
		Success: n - failed,
		Failed:  failed,
		Errors:  errs,
	}
}

// Preview is what the SPA shows before the user confirms an import.
type Preview struct {
	Rows  []models.CSVMember `json:"rows"`
	Total int                `json:"total"`
	More  int                `json:"more"`
}

// Session is one pass through upload → preview → import → results.
type Session struct {
	ID string

	mu        sync.Mutex
	step      Step
	fileName  string
	rows      []models.CSVMember
	result    *models.ImportResult
	updatedAt time.Time
}

func newSession(id string) *Session {
	return &Session{ID: id, step: StepUpload, updatedAt: timeutil.Now()}
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID       string               `json:"id"`
	Step     Step                 `json:"step"`
	FileName string               `json:"fileName,omitempty"`
	Total    int                  `json:"total"`
	Result   *models.ImportResult `json:"result,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:       s.ID,
		Step:     s.step,
		FileName: s.fileName,
		Total:    len(s.rows),
		Result:   s.result,
	}
}

func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// load moves the session to preview with rows. Zero rows leave it in upload.
func (s *Session) load(fileName string, rows []models.CSVMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepUpload {
		return fmt.Errorf("upload: %w", ErrWrongStep)
	}
	if len(rows) == 0 {
		return ErrNoValidRows
	}
	s.fileName = fileName
	s.rows = rows
	s.step = StepPreview
	s.updatedAt = timeutil.Now()
	return nil
}

// Preview returns the first limit rows and how many more follow.
func (s *Session) Preview(limit int) (Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepPreview {
		return Preview{}, fmt.Errorf("preview: %w", ErrWrongStep)
	}
	n := len(s.rows)
	if limit <= 0 || limit > n {
		limit = n
	}
	rows := make([]models.CSVMember, limit)
	copy(rows, s.rows[:limit])
	return Preview{Rows: rows, Total: n, More: n - limit}, nil
}

// Reset discards everything and returns to upload. It is refused while an
// import is running.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step == StepImport {
		return fmt.Errorf("reset: %w", ErrWrongStep)
	}
	s.step = StepUpload
	s.fileName = ""
	s.rows = nil
	s.result = nil
	s.updatedAt = timeutil.Now()
	return nil
}

// begin moves preview → import and hands back the rows to import.
func (s *Session) begin() ([]models.CSVMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepPreview {
		return nil, fmt.Errorf("import: %w", ErrWrongStep)
	}
	s.step = StepImport
	s.updatedAt = timeutil.Now()
	return s.rows, nil
}

func (s *Session) finish(res models.ImportResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = &res
	s.step = StepResults
	s.updatedAt = timeutil.Now()
}

// abort returns an interrupted import to preview so it can be retried.
func (s *Session) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = StepPreview
	s.updatedAt = timeutil.Now()
}

// Result is available once the session reaches results.
func (s *Session) Result() (models.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepResults || s.result == nil {
		return models.ImportResult{}, fmt.Errorf("result: %w", ErrWrongStep)
	}
	return *s.result, nil
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// run is the import step: simulated latency then the fabricated result.
func (s *Session) run(ctx context.Context, latency time.Duration) (models.ImportResult, []models.CSVMember, error) {
	rows, err := s.begin()
	if err != nil {
		return models.ImportResult{}, nil, err
	}
	if err := timeutil.Simulate(ctx, latency); err != nil {
		s.abort()
		return models.ImportResult{}, nil, err
	}
	res := SimulateResult(len(rows))
	return res, rows[:res.Success], nil
}
