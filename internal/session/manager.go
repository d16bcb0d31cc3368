// Package session keeps per-browser state on the server: the upstream auth
// token, the cached user record and the theme preferences.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"voteflow-backend/internal/logger"
	"voteflow-backend/internal/models"
)

// Stored keys. Each is namespaced by session id.
const (
	KeyAuthToken    = "authToken"
	KeyUser         = "user"
	KeyTheme        = "theme"
	KeyPrimaryColor = "primaryColor"
	KeyAccentColor  = "accentColor"
	KeyLayout       = "layout"
	KeyDensity      = "density"
	KeyRadius       = "radius"
)

var ErrNoSession = errors.New("no session")

type ctxKey struct{}

// WithID attaches a session id to ctx.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFrom returns the session id carried by ctx.
func IDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// State is what a page load restores.
type State struct {
	Token         string       `json:"-"`
	User          *models.User `json:"user"`
	Authenticated bool         `json:"authenticated"`
}

type Manager struct {
	kv     KV
	prefix string
}

func NewManager(kv KV) *Manager {
	return &Manager{kv: kv, prefix: "voteflow:session:"}
}

func (m *Manager) key(id, name string) string {
	return m.prefix + id + ":" + name
}

// Load restores the session. A corrupt user record is dropped rather than
// failing the load.
func (m *Manager) Load(ctx context.Context, id string) (State, error) {
	tok, ok, err := m.kv.Get(ctx, m.key(id, KeyAuthToken))
	if err != nil {
		return State{}, fmt.Errorf("load token: %w", err)
	}
	if !ok || tok == "" {
		return State{}, nil
	}
	st := State{Token: tok, Authenticated: true}

	raw, ok, err := m.kv.Get(ctx, m.key(id, KeyUser))
	if err != nil {
		return State{}, fmt.Errorf("load user: %w", err)
	}
	if ok {
		var u models.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			log := logger.For("session").WithField("session", id)
			log.WithError(err).Warn("[Session] Discarding unreadable user record")
			if err := m.kv.Del(ctx, m.key(id, KeyUser)); err != nil {
				log.WithError(err).Warn("[Session] Failed to drop unreadable user record")
			}
		} else {
			st.User = &u
		}
	}
	return st, nil
}

// Login stores the token and user returned by the API.
func (m *Manager) Login(ctx context.Context, id string, auth *models.AuthResponse) error {
	if auth == nil || auth.Token == "" {
		return errors.New("login response carried no token")
	}
	if err := m.kv.Set(ctx, m.key(id, KeyAuthToken), auth.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if auth.User != nil {
		return m.UpdateUser(ctx, id, auth.User)
	}
	return nil
}

func (m *Manager) UpdateUser(ctx context.Context, id string, u *models.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := m.kv.Set(ctx, m.key(id, KeyUser), string(b)); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// Logout drops the token and user. Preferences survive.
func (m *Manager) Logout(ctx context.Context, id string) error {
	return m.kv.Del(ctx, m.key(id, KeyAuthToken), m.key(id, KeyUser))
}

// Token returns the upstream token of the session in ctx, or "".
func (m *Manager) Token(ctx context.Context) string {
	id, ok := IDFrom(ctx)
	if !ok {
		return ""
	}
	tok, _, err := m.kv.Get(ctx, m.key(id, KeyAuthToken))
	if err != nil {
		logger.For("session").WithError(err).Warn("[Session] Token lookup failed")
		return ""
	}
	return tok
}

// OnUnauthorized clears the session in ctx. The API client calls it on
// every 401.
func (m *Manager) OnUnauthorized(ctx context.Context) {
	id, ok := IDFrom(ctx)
	if !ok {
		return
	}
	if err := m.Logout(ctx, id); err != nil {
		logger.For("session").WithError(err).Warn("[Session] Failed to clear session after 401")
		return
	}
	logger.For("session").WithField("session", id).Info("[Session] Cleared after 401")
}

// Preferences returns stored preferences, defaulting each unset key.
func (m *Manager) Preferences(ctx context.Context, id string) (models.Preferences, error) {
	p := models.DefaultPreferences()
	for name, dst := range prefFields(&p) {
		v, ok, err := m.kv.Get(ctx, m.key(id, name))
		if err != nil {
			return models.Preferences{}, fmt.Errorf("load %s: %w", name, err)
		}
		if ok && v != "" {
			*dst = v
		}
	}
	return p, nil
}

// SetPreferences writes the non-empty fields of p and returns the result.
func (m *Manager) SetPreferences(ctx context.Context, id string, p models.Preferences) (models.Preferences, error) {
	for name, src := range prefFields(&p) {
		if *src == "" {
			continue
		}
		if err := m.kv.Set(ctx, m.key(id, name), *src); err != nil {
			return models.Preferences{}, fmt.Errorf("save %s: %w", name, err)
		}
	}
	return m.Preferences(ctx, id)
}

// ResetPreferences removes all stored preference keys.
func (m *Manager) ResetPreferences(ctx context.Context, id string) error {
	return m.kv.Del(ctx,
		m.key(id, KeyTheme), m.key(id, KeyPrimaryColor), m.key(id, KeyAccentColor),
		m.key(id, KeyLayout), m.key(id, KeyDensity), m.key(id, KeyRadius))
}

func prefFields(p *models.Preferences) map[string]*string {
	return map[string]*string{
		KeyTheme:        &p.Theme,
		KeyPrimaryColor: &p.PrimaryColor,
		KeyAccentColor:  &p.AccentColor,
		KeyLayout:       &p.Layout,
		KeyDensity:      &p.Density,
		KeyRadius:       &p.Radius,
	}
}
