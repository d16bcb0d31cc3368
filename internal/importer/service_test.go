package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"voteflow-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fakeCommitter struct {
	mu   sync.Mutex
	rows []models.CSVMember
}

func (f *fakeCommitter) ImportMembers(_ context.Context, rows []models.CSVMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, rows...)
	return nil
}

type fakeArchiver struct {
	files map[string][]byte
	err   error
}

func (f *fakeArchiver) Archive(_ context.Context, id, name string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.files[id+"/"+name] = data
	return nil
}

func csvWithRows(n int) string {
	var b strings.Builder
	b.WriteString(fullHeader)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "\nSTU%d,Member %d,m%d@x.com,voter,,,,", i, i, i)
	}
	return b.String()
}

func TestImportFlow(t *testing.T) {
	committer := &fakeCommitter{}
	archiver := &fakeArchiver{files: map[string][]byte{}}
	svc := NewService(Options{}, committer, archiver)
	ctx := context.Background()

	sess := svc.Start()
	assert.Equal(t, StepUpload, sess.Step())

	n, err := svc.Upload(ctx, sess.ID, "members.csv", "text/csv", []byte(csvWithRows(25)))
	require.NoError(t, err)
	assert.Equal(t, 25, n)
	assert.Equal(t, StepPreview, sess.Step())
	assert.Contains(t, archiver.files, sess.ID+"/members.csv")

	p, err := svc.Preview(sess.ID)
	require.NoError(t, err)
	assert.Len(t, p.Rows, 10)
	assert.Equal(t, 25, p.Total)
	assert.Equal(t, 15, p.More)

	res, err := svc.Confirm(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 23, res.Success)
	assert.Equal(t, 2, res.Failed)
	assert.Len(t, res.Errors, 2)
	assert.Equal(t, StepResults, sess.Step())
	assert.Len(t, committer.rows, 23)

	got, err := sess.Result()
	require.NoError(t, err)
	assert.Equal(t, res, got)

	require.NoError(t, svc.Reset(sess.ID))
	assert.Equal(t, StepUpload, sess.Step())
	assert.Equal(t, 0, sess.Snapshot().Total)
}

func TestUploadWithNoValidRowsStaysInUpload(t *testing.T) {
	svc := NewService(Options{}, nil, nil)
	sess := svc.Start()

	for _, body := range []string{"", fullHeader, fullHeader + "\n,,,,,,,"} {
		_, err := svc.Upload(context.Background(), sess.ID, "members.csv", "text/csv", []byte(body))
		assert.ErrorIs(t, err, ErrNoValidRows)
		assert.Equal(t, StepUpload, sess.Step())
	}
}

func TestUploadRejectsBadFilesWithoutStateChange(t *testing.T) {
	archiver := &fakeArchiver{files: map[string][]byte{}}
	svc := NewService(Options{MaxFileBytes: 16}, nil, archiver)
	sess := svc.Start()

	_, err := svc.Upload(context.Background(), sess.ID, "members.txt", "text/plain", []byte("name,email,role"))
	assert.ErrorIs(t, err, ErrNotCSV)
	_, err = svc.Upload(context.Background(), sess.ID, "members.csv", "text/csv", []byte(csvWithRows(3)))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	assert.Equal(t, StepUpload, sess.Step())
	assert.Empty(t, archiver.files)
}

func TestArchiveFailureDoesNotFailUpload(t *testing.T) {
	svc := NewService(Options{}, nil, &fakeArchiver{err: errors.New("bucket down")})
	sess := svc.Start()
	n, err := svc.Upload(context.Background(), sess.ID, "m.csv", "", []byte(csvWithRows(1)))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCancelFromPreviewDiscardsRows(t *testing.T) {
	svc := NewService(Options{}, nil, nil)
	sess := svc.Start()
	_, err := svc.Upload(context.Background(), sess.ID, "m.csv", "", []byte(csvWithRows(3)))
	require.NoError(t, err)

	require.NoError(t, svc.Reset(sess.ID))
	_, err = svc.Preview(sess.ID)
	assert.ErrorIs(t, err, ErrWrongStep)
	_, err = svc.Confirm(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestSecondUploadNeedsReset(t *testing.T) {
	svc := NewService(Options{}, nil, nil)
	sess := svc.Start()
	_, err := svc.Upload(context.Background(), sess.ID, "m.csv", "", []byte(csvWithRows(1)))
	require.NoError(t, err)
	_, err = svc.Upload(context.Background(), sess.ID, "m.csv", "", []byte(csvWithRows(1)))
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestConfirmCancelledReturnsToPreview(t *testing.T) {
	svc := NewService(Options{Latency: time.Hour}, nil, nil)
	sess := svc.Start()
	_, err := svc.Upload(context.Background(), sess.ID, "m.csv", "", []byte(csvWithRows(2)))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = svc.Confirm(ctx, sess.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StepPreview, sess.Step())
}

func TestUnknownSession(t *testing.T) {
	svc := NewService(Options{}, nil, nil)
	_, err := svc.Preview("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPurgeIdle(t *testing.T) {
	svc := NewService(Options{}, nil, nil)
	old := svc.Start()
	old.updatedAt = old.updatedAt.Add(-time.Hour)
	fresh := svc.Start()

	assert.Equal(t, 1, svc.PurgeIdle(30*time.Minute))
	_, err := svc.Get(old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestSimulateResultAccounting(t *testing.T) {
	assert.Equal(t, models.ImportResult{Success: 1, Failed: 0, Errors: sampleImportErrors}, SimulateResult(1))
	assert.Equal(t, 9, SimulateResult(10).Success)

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 100000).Draw(t, "n")
		res := SimulateResult(n)
		if res.Success+res.Failed != n {
			t.Fatalf("success %d + failed %d != %d", res.Success, res.Failed, n)
		}
		if res.Failed != n/10 {
			t.Fatalf("failed %d, want %d", res.Failed, n/10)
		}
	})
}

func TestTemplateParsesBack(t *testing.T) {
	data, err := Template()
	require.NoError(t, err)
	rows := Parse(string(data))
	require.Len(t, rows, 2)
	assert.Equal(t, models.RoleAdmin, rows[1].Role)
}

func TestReportRendersPDF(t *testing.T) {
	data, err := Report("m.csv", SimulateResult(20))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}
