// Package security implements two-factor settings: TOTP enrolment,
// verification and one-time backup codes.
package security

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"voteflow-backend/internal/auth"
	"voteflow-backend/internal/logger"
	"voteflow-backend/internal/session"
	"voteflow-backend/internal/timeutil"
)

const (
	issuer            = "VoteFlow"
	backupCodeCount   = 10
	backupCodeLength  = 8
	maxFailedAttempts = 5
	rateLimitWindow   = 15 * time.Minute
)

type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrTooManyAttempts = &Error{Message: "too many failed attempts, please try again later"}
	ErrNoSecret        = &Error{Message: "2FA setup not initiated"}
	ErrInvalidCode     = &Error{Message: "invalid verification code"}
	ErrNotEnabled      = &Error{Message: "2FA is not enabled"}
	ErrAlreadyEnabled  = &Error{Message: "2FA is already enabled"}
)

type Setup struct {
	Secret      string `json:"secret"`
	QRCode      string `json:"qrCode"`
	Issuer      string `json:"issuer"`
	AccountName string `json:"accountName"`
}

type Status struct {
	Enabled              bool `json:"enabled"`
	BackupCodesRemaining int  `json:"backupCodesRemaining"`
}

// Service keeps per-user two-factor state in the session KV so it lives
// wherever sessions live.
type Service struct {
	kv session.KV

	mu       sync.Mutex
	failures map[string][]time.Time

	// serialises read-compare-store of each user's backup codes
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewService creates the two-factor service
//
// Parameters:
//   - kv: key-value store holding secrets, flags and hashed backup codes
//
// Returns:
//   - *Service: New service instance
func NewService(kv session.KV) *Service {
	return &Service{
		kv:       kv,
		failures: make(map[string][]time.Time),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func key(userID, name string) string {
	return "voteflow:2fa:" + userID + ":" + name
}

// Setup creates a fresh secret and QR code. The secret is not active until
// Enable confirms a code from it.
//
// Parameters:
//   - userID: upstream user id the secret belongs to
//   - account: label shown in the authenticator app, usually the email
//
// Returns:
//   - *Setup: secret and QR code as a PNG data URL
//   - error: ErrAlreadyEnabled, or a store failure
func (s *Service) Setup(ctx context.Context, userID, account string) (*Setup, error) {
	if on, err := s.enabled(ctx, userID); err != nil {
		return nil, err
	} else if on {
		return nil, ErrAlreadyEnabled
	}

	// Generate new TOTP key
	k, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}
	// Store the secret (not yet enabled)
	if err := s.kv.Set(ctx, key(userID, "secret"), k.Secret()); err != nil {
		return nil, fmt.Errorf("store secret: %w", err)
	}

	// Render the QR code as a base64 PNG
	img, err := k.Image(200, 200)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}

	return &Setup{
		Secret:      k.Secret(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Issuer:      issuer,
		AccountName: account,
	}, nil
}

// Enable confirms the pending secret and returns fresh backup codes.
func (s *Service) Enable(ctx context.Context, userID, code string) ([]string, error) {
	// Check rate limiting
	if s.limited(userID) {
		return nil, ErrTooManyAttempts
	}
	secret, ok, err := s.kv.Get(ctx, key(userID, "secret"))
	if err != nil {
		return nil, err
	}
	if !ok || secret == "" {
		return nil, ErrNoSecret
	}
	if !totp.Validate(code, secret) {
		s.fail(userID)
		return nil, ErrInvalidCode
	}

	// Enable TOTP, then hand out backup codes
	if err := s.kv.Set(ctx, key(userID, "enabled"), "true"); err != nil {
		return nil, err
	}
	logger.For("security").WithField("user", userID).Info("[2FA] Enabled")
	return s.issueBackupCodes(ctx, userID)
}

// Verify accepts a current TOTP code or consumes a backup code.
//
// Returns:
//   - nil when the code is accepted
//   - ErrTooManyAttempts after repeated failures in the window
//   - ErrNotEnabled, ErrInvalidCode, or a store failure otherwise
func (s *Service) Verify(ctx context.Context, userID, code string) error {
	if s.limited(userID) {
		return ErrTooManyAttempts
	}
	on, err := s.enabled(ctx, userID)
	if err != nil {
		return err
	}
	if !on {
		return ErrNotEnabled
	}
	secret, _, err := s.kv.Get(ctx, key(userID, "secret"))
	if err != nil {
		return err
	}
	// Try TOTP code first
	code = strings.TrimSpace(code)
	if totp.Validate(code, secret) {
		s.clear(userID)
		return nil
	}

	// Try backup code
	used, err := s.consumeBackupCode(ctx, userID, strings.ToUpper(code))
	if err != nil {
		return err
	}
	if used {
		s.clear(userID)
		return nil
	}
	s.fail(userID)
	return ErrInvalidCode
}

// Disable turns two-factor off after checking a current code.
func (s *Service) Disable(ctx context.Context, userID, code string) error {
	if err := s.Verify(ctx, userID, code); err != nil {
		return err
	}
	return s.kv.Del(ctx, key(userID, "secret"), key(userID, "enabled"), key(userID, "backup"))
}

// RegenerateBackupCodes replaces all backup codes after checking a code.
func (s *Service) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	if err := s.Verify(ctx, userID, code); err != nil {
		return nil, err
	}
	return s.issueBackupCodes(ctx, userID)
}

func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	on, err := s.enabled(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	hashes, err := s.backupHashes(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return Status{Enabled: on, BackupCodesRemaining: len(hashes)}, nil
}

// Enabled reports whether the user has two-factor turned on.
func (s *Service) Enabled(ctx context.Context, userID string) bool {
	on, err := s.enabled(ctx, userID)
	return err == nil && on
}

func (s *Service) enabled(ctx context.Context, userID string) (bool, error) {
	v, _, err := s.kv.Get(ctx, key(userID, "enabled"))
	return v == "true", err
}

func (s *Service) issueBackupCodes(ctx context.Context, userID string) ([]string, error) {
	codes := make([]string, backupCodeCount)
	hashes := make([]string, backupCodeCount)
	for i := range codes {
		c, err := randomCode(backupCodeLength)
		if err != nil {
			return nil, err
		}
		codes[i] = c
		// Only the bcrypt hash is stored
		h, err := auth.HashSecret(c)
		if err != nil {
			return nil, err
		}
		hashes[i] = h
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()
	if err := s.storeHashes(ctx, userID, hashes); err != nil {
		return nil, err
	}
	return codes, nil
}

// consumeBackupCode removes code from the user's backup codes if it is one
// of them. Concurrent callers with the same code see exactly one success.
func (s *Service) consumeBackupCode(ctx context.Context, userID, code string) (bool, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	hashes, err := s.backupHashes(ctx, userID)
	if err != nil {
		return false, err
	}
	for i, h := range hashes {
		if auth.VerifySecret(h, code) {
			// Remove the used code
			hashes = append(hashes[:i], hashes[i+1:]...)
			return true, s.storeHashes(ctx, userID, hashes)
		}
	}
	return false, nil
}

func (s *Service) backupHashes(ctx context.Context, userID string) ([]string, error) {
	raw, ok, err := s.kv.Get(ctx, key(userID, "backup"))
	if err != nil || !ok {
		return nil, err
	}
	var hashes []string
	if err := json.Unmarshal([]byte(raw), &hashes); err != nil {
		return nil, fmt.Errorf("decode backup codes: %w", err)
	}
	return hashes, nil
}

func (s *Service) storeHashes(ctx context.Context, userID string, hashes []string) error {
	b, err := json.Marshal(hashes)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key(userID, "backup"), string(b))
}

func (s *Service) limited(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := timeutil.Now().Add(-rateLimitWindow)
	recent := s.failures[userID][:0]
	for _, at := range s.failures[userID] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	s.failures[userID] = recent
	return len(recent) >= maxFailedAttempts
}

func (s *Service) fail(userID string) {
	s.mu.Lock()
	s.failures[userID] = append(s.failures[userID], timeutil.Now())
	s.mu.Unlock()
}

func (s *Service) clear(userID string) {
	s.mu.Lock()
	delete(s.failures, userID)
	s.mu.Unlock()
}

// randomCode draws from an alphabet without look-alike characters.
func randomCode(length int) (string, error) {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no I, O, 0 or 1
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate backup code: %w", err)
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b), nil
}

// BackupCodesFile renders the plain-text download offered after enabling
// two-factor.
func BackupCodesFile(account string, codes []string) []byte {
	var b strings.Builder
	b.WriteString("VoteFlow backup codes\n")
	if account != "" {
		fmt.Fprintf(&b, "Account: %s\n", account)
	}
	fmt.Fprintf(&b, "Generated: %s\n\n", timeutil.Now().Format(timeutil.DisplayLayout))
	for i, c := range codes {
		fmt.Fprintf(&b, "%2d. %s\n", i+1, c)
	}
	b.WriteString("\nEach code can be used once. Keep them somewhere safe.\n")
	return []byte(b.String())
}
