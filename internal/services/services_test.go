package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notesapp/apiserver/internal/access"
	"github.com/notesapp/apiserver/internal/auth"
	"github.com/notesapp/apiserver/internal/events"
	"github.com/notesapp/apiserver/internal/storage"
	"github.com/notesapp/apiserver/internal/store"
	"github.com/notesapp/apiserver/internal/testutil"
	"github.com/notesapp/apiserver/types"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}}
}

func (m *memoryObjects) EnsureBucket(context.Context) error { return nil }

func (m *memoryObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memoryObjects) Bucket() string { return "notes-exports" }

func (m *memoryObjects) Close() error { return nil }

type fixture struct {
	users     *UserService
	notes     *NoteService
	exports   *ExportService
	objects   *memoryObjects
	publisher *recordingPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := testutil.NewDB(t)
	userRepo := store.NewUserRepository(conn, conn)
	noteRepo := store.NewNoteRepository(conn, conn)

	tokens, err := auth.NewTokenIssuer("secret", "HS256", 30*time.Minute)
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	objects := newMemoryObjects()
	return fixture{
		users:     NewUserService(userRepo, noteRepo, tokens, publisher),
		notes:     NewNoteService(noteRepo, publisher),
		exports:   NewExportService(userRepo, noteRepo, objects, publisher),
		objects:   objects,
		publisher: publisher,
	}
}

func (f fixture) register(t *testing.T, email string) access.Actor {
	t.Helper()
	user, err := f.users.Register(context.Background(), email, "Name", "password123")
	require.NoError(t, err)
	return access.ActorFromUser(user)
}

func (f fixture) admin(t *testing.T, email string) access.Actor {
	t.Helper()
	f.register(t, email)
	user, err := f.users.Promote(context.Background(), email)
	require.NoError(t, err)
	return access.ActorFromUser(user)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.users.Register(ctx, "u1@example.com", "User One", "password123")
	require.NoError(t, err)
	assert.Equal(t, types.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "password123", user.PasswordHash)

	_, err = f.users.Register(ctx, "u1@example.com", "Again", "password123")
	assert.ErrorIs(t, err, ErrEmailTaken)

	token, err := f.users.Login(ctx, "u1@example.com", "password123")
	require.NoError(t, err)

	authed, err := f.users.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = f.users.Login(ctx, "u1@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.users.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, []string{events.UserRegistered}, f.publisher.eventTypes())
}

func TestAuthenticateRejectsBadTokensAndInactiveUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	admin := f.admin(t, "a1@example.com")
	user := f.register(t, "u1@example.com")

	token, err := f.users.Login(ctx, "u1@example.com", "password123")
	require.NoError(t, err)

	_, err = f.users.UpdateStatus(ctx, admin, user.ID, false)
	require.NoError(t, err)

	_, err = f.users.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Login still succeeds for a deactivated account.
	_, err = f.users.Login(ctx, "u1@example.com", "password123")
	assert.NoError(t, err)
}

func TestNoteAccessPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u1 := f.register(t, "u1@example.com")
	u2 := f.register(t, "u2@example.com")
	a1 := f.admin(t, "a1@example.com")

	n1, err := f.notes.Create(ctx, u1, "groceries", nil)
	require.NoError(t, err)
	assert.Equal(t, u1.ID, n1.OwnerID)

	_, err = f.notes.Get(ctx, u2, n1.ID)
	assert.ErrorIs(t, err, access.ErrForbidden)

	got, err := f.notes.Get(ctx, a1, n1.ID)
	require.NoError(t, err)
	assert.Equal(t, n1.ID, got.ID)

	title := "stolen"
	_, err = f.notes.Update(ctx, u2, n1.ID, types.NotePatch{Title: &title})
	assert.ErrorIs(t, err, access.ErrForbidden)
	assert.ErrorIs(t, f.notes.Delete(ctx, u2, n1.ID), access.ErrForbidden)

	_, err = f.notes.Get(ctx, u2, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	description := "milk"
	updated, err := f.notes.Update(ctx, a1, n1.ID, types.NotePatch{Description: &description})
	require.NoError(t, err)
	assert.Equal(t, "groceries", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "milk", *updated.Description)
	assert.Equal(t, u1.ID, updated.OwnerID)

	require.NoError(t, f.notes.Delete(ctx, u1, n1.ID))
	_, err = f.notes.Get(ctx, u1, n1.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNoteListScopesByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u1 := f.register(t, "u1@example.com")
	u2 := f.register(t, "u2@example.com")
	a1 := f.admin(t, "a1@example.com")

	for i := 0; i < 25; i++ {
		_, err := f.notes.Create(ctx, u1, fmt.Sprintf("note %d", i), nil)
		require.NoError(t, err)
	}
	_, err := f.notes.Create(ctx, u2, "other", nil)
	require.NoError(t, err)

	page, err := f.notes.List(ctx, u1, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, page.Meta.Total)
	assert.Equal(t, 3, page.Meta.Page)
	assert.Equal(t, 3, page.Meta.Pages)
	assert.Len(t, page.Items, 5)
	for _, note := range page.Items {
		assert.Equal(t, u1.ID, note.OwnerID)
	}

	page, err = f.notes.List(ctx, u2, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Meta.Total)

	page, err = f.notes.List(ctx, a1, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 26, page.Meta.Total)
	assert.Len(t, page.Items, 26)

	empty := f.register(t, "empty@example.com")
	page, err = f.notes.List(ctx, empty, 4, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Meta.Total)
	assert.Equal(t, 1, page.Meta.Page)
	assert.Equal(t, 1, page.Meta.Pages)
	assert.Empty(t, page.Items)
}

func TestUserAdministration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a1 := f.admin(t, "a1@example.com")
	u1 := f.register(t, "u1@example.com")

	_, err := f.users.List(ctx, u1, types.UserFilter{}, 1, 10)
	assert.ErrorIs(t, err, access.ErrForbidden)

	_, err = f.users.UpdateRole(ctx, a1, a1.ID, "user")
	assert.ErrorIs(t, err, access.ErrSelfDemotion)
	_, err = f.users.UpdateRole(ctx, a1, u1.ID, "superuser")
	assert.ErrorIs(t, err, access.ErrInvalidRole)
	_, err = f.users.UpdateRole(ctx, a1, 9999, "superuser")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.users.UpdateRole(ctx, u1, a1.ID, "user")
	assert.ErrorIs(t, err, access.ErrForbidden)

	promoted, err := f.users.UpdateRole(ctx, a1, u1.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, promoted.Role)

	_, err = f.users.UpdateStatus(ctx, a1, a1.ID, false)
	assert.ErrorIs(t, err, access.ErrSelfDeactivation)

	deactivated, err := f.users.UpdateStatus(ctx, a1, u1.ID, false)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	inactive := false
	page, err := f.users.List(ctx, a1, types.UserFilter{IsActive: &inactive}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, u1.ID, page.Items[0].ID)

	_, err = f.notes.Create(ctx, a1, "admin note", nil)
	require.NoError(t, err)
	detail, err := f.users.Detail(ctx, a1, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, a1.ID, detail.ID)
	assert.Len(t, detail.Notes, 1)

	_, err = f.users.Detail(ctx, a1, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Contains(t, f.publisher.eventTypes(), events.UserRoleChanged)
	assert.Contains(t, f.publisher.eventTypes(), events.UserStatusChanged)
}

func TestExportLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a1 := f.admin(t, "a1@example.com")
	u1 := f.register(t, "u1@example.com")
	_, err := f.notes.Create(ctx, u1, "first", nil)
	require.NoError(t, err)
	_, err = f.notes.Create(ctx, u1, "second", nil)
	require.NoError(t, err)

	_, err = f.exports.Export(ctx, u1, u1.ID)
	assert.ErrorIs(t, err, access.ErrForbidden)

	receipt, err := f.exports.Export(ctx, a1, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, receipt.NoteCount)
	assert.Equal(t, ExportKey(u1.ID, receipt.ID), receipt.Key)
	assert.Equal(t, "notes-exports", receipt.Bucket)

	body, err := f.exports.Open(ctx, a1, u1.ID, receipt.ID)
	require.NoError(t, err)
	defer body.Close()

	var doc types.NoteExport
	require.NoError(t, json.NewDecoder(body).Decode(&doc))
	assert.Equal(t, receipt.ID, doc.ID)
	assert.Equal(t, u1.ID, doc.User.ID)
	assert.Equal(t, a1.ID, doc.ExportedBy)
	assert.Len(t, doc.Notes, 2)

	_, err = f.exports.Open(ctx, a1, u1.ID, "not-a-uuid")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	require.NoError(t, f.exports.Delete(ctx, a1, u1.ID, receipt.ID))
	assert.ErrorIs(t, f.exports.Delete(ctx, a1, u1.ID, receipt.ID), storage.ErrObjectNotFound)

	_, err = f.exports.Export(ctx, a1, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExportDisabled(t *testing.T) {
	f := newFixture(t)
	a1 := f.admin(t, "a1@example.com")

	disabled := NewExportService(nil, nil, nil, nil)
	assert.False(t, disabled.Enabled())
	_, err := disabled.Export(context.Background(), a1, a1.ID)
	assert.ErrorIs(t, err, ErrExportDisabled)
}
