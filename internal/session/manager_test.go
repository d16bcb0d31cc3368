package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voteflow-backend/internal/models"
)

func TestLoginLoadLogout(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	m := NewManager(kv)

	st, err := m.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, st.Authenticated)

	user := &models.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: models.RoleAdmin}
	require.NoError(t, m.Login(ctx, "s1", &models.AuthResponse{Token: "tok", User: user}))

	st, err = m.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	assert.Equal(t, "tok", st.Token)
	require.NotNil(t, st.User)
	assert.Equal(t, "Ada", st.User.Name)

	assert.Equal(t, "tok", m.Token(WithID(ctx, "s1")))
	assert.Empty(t, m.Token(ctx))
	assert.Empty(t, m.Token(WithID(ctx, "s2")))

	require.NoError(t, m.Logout(ctx, "s1"))
	st, err = m.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, st.Authenticated)
	assert.Nil(t, st.User)
}

func TestLoginRequiresToken(t *testing.T) {
	m := NewManager(NewMemoryKV())
	assert.Error(t, m.Login(context.Background(), "s1", &models.AuthResponse{}))
	assert.Error(t, m.Login(context.Background(), "s1", nil))
}

func TestCorruptUserIsDropped(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	m := NewManager(kv)
	require.NoError(t, kv.Set(ctx, m.key("s1", KeyAuthToken), "tok"))
	require.NoError(t, kv.Set(ctx, m.key("s1", KeyUser), "{not json"))

	st, err := m.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	assert.Nil(t, st.User)
	_, ok, _ := kv.Get(ctx, m.key("s1", KeyUser))
	assert.False(t, ok)
}

// failingDel is a MemoryKV whose deletes always fail.
type failingDel struct{ *MemoryKV }

func (failingDel) Del(context.Context, ...string) error { return errors.New("kv down") }

func TestCorruptUserDropFailureDoesNotFailLoad(t *testing.T) {
	ctx := context.Background()
	kv := failingDel{NewMemoryKV()}
	m := NewManager(kv)
	require.NoError(t, kv.Set(ctx, m.key("s1", KeyAuthToken), "tok"))
	require.NoError(t, kv.Set(ctx, m.key("s1", KeyUser), "{not json"))

	st, err := m.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	assert.Nil(t, st.User)
}

func TestUnauthorizedClearsSessionButKeepsPreferences(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryKV())
	require.NoError(t, m.Login(ctx, "s1", &models.AuthResponse{Token: "tok", User: &models.User{ID: "u1"}}))
	_, err := m.SetPreferences(ctx, "s1", models.Preferences{Theme: "dark"})
	require.NoError(t, err)

	m.OnUnauthorized(WithID(ctx, "s1"))

	st, err := m.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, st.Authenticated)
	p, err := m.Preferences(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "dark", p.Theme)

	// no session in context is a no-op
	m.OnUnauthorized(ctx)
}

func TestPreferencesDefaultAndPartialUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryKV())

	p, err := m.Preferences(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPreferences(), p)

	p, err = m.SetPreferences(ctx, "s1", models.Preferences{Theme: "dark", Radius: "lg"})
	require.NoError(t, err)
	want := models.DefaultPreferences()
	want.Theme = "dark"
	want.Radius = "lg"
	assert.Equal(t, want, p)

	require.NoError(t, m.ResetPreferences(ctx, "s1"))
	p, err = m.Preferences(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPreferences(), p)
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryKV())
	require.NoError(t, m.Login(ctx, "a", &models.AuthResponse{Token: "ta"}))
	require.NoError(t, m.Login(ctx, "b", &models.AuthResponse{Token: "tb"}))
	require.NoError(t, m.Logout(ctx, "a"))

	assert.Empty(t, m.Token(WithID(ctx, "a")))
	assert.Equal(t, "tb", m.Token(WithID(ctx, "b")))
}

func TestRedisKV(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := Dial(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	kv := NewRedisKV(client, time.Minute)
	key := "voteflow:test:" + uuid.NewString()
	defer kv.Del(ctx, key)

	_, ok, err := kv.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, key, "v"))
	v, ok, err := kv.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, kv.Del(ctx, key))
	_, ok, err = kv.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
