package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notesapp/apiserver/internal/testutil"
	"github.com/notesapp/apiserver/types"
)

func newRepos(t *testing.T) (*UserRepository, *NoteRepository) {
	t.Helper()
	conn := testutil.NewDB(t)
	return NewUserRepository(conn, conn), NewNoteRepository(conn, nil)
}

func createUser(t *testing.T, repo *UserRepository, email string, role types.Role) types.User {
	t.Helper()
	user, err := repo.Create(context.Background(), types.User{
		Email:        email,
		Name:         email,
		Role:         role,
		IsActive:     true,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return user
}

func TestUserRepositoryCreateAndGet(t *testing.T) {
	users, _ := newRepos(t)
	ctx := context.Background()

	created := createUser(t, users, "u1@example.com", types.RoleUser)
	assert.Positive(t, created.ID)

	byID, err := users.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", byID.Email)
	assert.Equal(t, types.RoleUser, byID.Role)
	assert.True(t, byID.IsActive)
	assert.Equal(t, "hash", byID.PasswordHash)

	byEmail, err := users.GetByEmail(ctx, "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = users.GetByEmail(ctx, "U1@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = users.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	users, _ := newRepos(t)
	createUser(t, users, "dup@example.com", types.RoleUser)

	_, err := users.Create(context.Background(), types.User{
		Email:        "dup@example.com",
		Name:         "again",
		Role:         types.RoleUser,
		IsActive:     true,
		PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserRepositoryUpdate(t *testing.T) {
	users, _ := newRepos(t)
	ctx := context.Background()
	user := createUser(t, users, "u1@example.com", types.RoleUser)

	user.Role = types.RoleAdmin
	user.IsActive = false
	_, err := users.Update(ctx, user)
	require.NoError(t, err)

	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, stored.Role)
	assert.False(t, stored.IsActive)

	_, err = users.Update(ctx, types.User{ID: 999, Email: "x@example.com", Role: types.RoleUser})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepositoryListAndFilter(t *testing.T) {
	users, _ := newRepos(t)
	ctx := context.Background()

	admin := createUser(t, users, "admin@example.com", types.RoleAdmin)
	for i := 0; i < 4; i++ {
		createUser(t, users, fmt.Sprintf("u%d@example.com", i), types.RoleUser)
	}
	inactive := createUser(t, users, "gone@example.com", types.RoleUser)
	inactive.IsActive = false
	_, err := users.Update(ctx, inactive)
	require.NoError(t, err)

	total, err := users.Count(ctx, types.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 6, total)

	page, err := users.List(ctx, types.UserFilter{}, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, admin.ID, page[0].ID)
	assert.Less(t, page[0].ID, page[1].ID)

	role := types.RoleUser
	active := true
	filter := types.UserFilter{Role: &role, IsActive: &active}
	total, err = users.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	filtered, err := users.List(ctx, filter, 2, 10)
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
	for _, u := range filtered {
		assert.Equal(t, types.RoleUser, u.Role)
		assert.True(t, u.IsActive)
	}
}

func TestNoteRepositoryLifecycle(t *testing.T) {
	users, notes := newRepos(t)
	ctx := context.Background()
	owner := createUser(t, users, "owner@example.com", types.RoleUser)

	description := "milk, eggs"
	created, err := notes.Create(ctx, types.Note{Title: "groceries", Description: &description, OwnerID: owner.ID})
	require.NoError(t, err)
	assert.Positive(t, created.ID)

	stored, err := notes.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "groceries", stored.Title)
	require.NotNil(t, stored.Description)
	assert.Equal(t, "milk, eggs", *stored.Description)
	assert.Equal(t, owner.ID, stored.OwnerID)

	stored.Title = "shopping"
	stored.Description = nil
	_, err = notes.Update(ctx, stored)
	require.NoError(t, err)

	updated, err := notes.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "shopping", updated.Title)
	assert.Nil(t, updated.Description)
	assert.Equal(t, owner.ID, updated.OwnerID)

	require.NoError(t, notes.Delete(ctx, created.ID))
	_, err = notes.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, notes.Delete(ctx, created.ID), ErrNotFound)
	_, err = notes.Update(ctx, stored)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNoteRepositoryListScopesAndOrders(t *testing.T) {
	users, notes := newRepos(t)
	ctx := context.Background()
	u1 := createUser(t, users, "u1@example.com", types.RoleUser)
	u2 := createUser(t, users, "u2@example.com", types.RoleUser)

	var u1Notes []types.Note
	for i := 0; i < 3; i++ {
		note, err := notes.Create(ctx, types.Note{Title: fmt.Sprintf("u1-%d", i), OwnerID: u1.ID})
		require.NoError(t, err)
		u1Notes = append(u1Notes, note)
	}
	_, err := notes.Create(ctx, types.Note{Title: "u2-0", OwnerID: u2.ID})
	require.NoError(t, err)

	total, err := notes.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	total, err = notes.Count(ctx, &u1.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	own, err := notes.List(ctx, &u1.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, u1Notes[2].ID, own[0].ID)
	assert.Equal(t, u1Notes[1].ID, own[1].ID)

	rest, err := notes.List(ctx, &u1.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, u1Notes[0].ID, rest[0].ID)

	all, err := notes.List(ctx, nil, 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	byOwner, err := notes.ListByOwner(ctx, u2.ID)
	require.NoError(t, err)
	require.Len(t, byOwner, 1)
	assert.Equal(t, "u2-0", byOwner[0].Title)

	empty, err := notes.List(ctx, &u2.ID, 10, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestNoteRepositoryRejectsUnknownOwner(t *testing.T) {
	_, notes := newRepos(t)
	_, err := notes.Create(context.Background(), types.Note{Title: "orphan", OwnerID: 42})
	assert.Error(t, err)
}
