package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/notesapp/apiserver/internal/access"
	"github.com/notesapp/apiserver/internal/auth"
	"github.com/notesapp/apiserver/internal/events"
	"github.com/notesapp/apiserver/internal/pagination"
	"github.com/notesapp/apiserver/internal/store"
	"github.com/notesapp/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Count(ctx context.Context, filter types.UserFilter) (int, error)
	List(ctx context.Context, filter types.UserFilter, offset, limit int) ([]types.User, error)
}

// UserService encapsulates account and user administration use-cases.
type UserService struct {
	repo   UserRepository
	notes  NoteRepository
	tokens *auth.TokenIssuer
	events events.Publisher
}

func NewUserService(repo UserRepository, notes NoteRepository, tokens *auth.TokenIssuer, publisher events.Publisher) *UserService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &UserService{repo: repo, notes: notes, tokens: tokens, events: publisher}
}

// Register creates an active account with the user role.
func (s *UserService) Register(ctx context.Context, email, name, password string) (types.User, error) {
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Email:        email,
		Name:         name,
		Role:         types.RoleUser,
		IsActive:     true,
		PasswordHash: hashed,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrEmailTaken
		}
		return types.User{}, err
	}

	s.events.Publish(ctx, events.New(events.UserRegistered, user.ID, user.ID, map[string]any{
		"email": user.Email,
	}))
	return user, nil
}

// Login verifies credentials and returns a signed access token. Inactive
// accounts still receive a token; it is rejected by Authenticate.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = auth.CheckPasswordNoUser(password)
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.tokens.Issue(user)
}

// Authenticate resolves a bearer token to its stored, active user.
func (s *UserService) Authenticate(ctx context.Context, token string) (types.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return types.User{}, ErrUnauthenticated
	}
	id, err := claims.UserID()
	if err != nil {
		return types.User{}, ErrUnauthenticated
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUnauthenticated
		}
		return types.User{}, err
	}
	if !user.IsActive {
		return types.User{}, ErrUnauthenticated
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns one page of users for an admin actor.
func (s *UserService) List(ctx context.Context, actor access.Actor, filter types.UserFilter, page, size int) (pagination.Page[types.User], error) {
	if err := access.RequireAdmin(actor); err != nil {
		return pagination.Page[types.User]{}, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return pagination.Page[types.User]{}, err
	}
	window := pagination.Compute(total, page, size)

	users, err := s.repo.List(ctx, filter, window.Offset, window.Size)
	if err != nil {
		return pagination.Page[types.User]{}, err
	}
	return pagination.NewPage(users, window, total), nil
}

// Detail returns a user with all of their notes.
func (s *UserService) Detail(ctx context.Context, actor access.Actor, id int) (types.UserDetail, error) {
	if err := access.RequireAdmin(actor); err != nil {
		return types.UserDetail{}, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.UserDetail{}, err
	}
	notes, err := s.notes.ListByOwner(ctx, id)
	if err != nil {
		return types.UserDetail{}, err
	}
	return types.UserDetail{User: user, Notes: notes}, nil
}

// UpdateRole sets the role of user id. A missing target is reported before
// the requested role is validated.
func (s *UserService) UpdateRole(ctx context.Context, actor access.Actor, id int, requested string) (types.User, error) {
	if err := access.RequireAdmin(actor); err != nil {
		return types.User{}, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	role, err := access.AuthorizeRoleChange(actor, id, requested)
	if err != nil {
		return types.User{}, err
	}
	previous := user.Role
	user.Role = role

	user, err = s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, err
	}

	s.events.Publish(ctx, events.New(events.UserRoleChanged, actor.ID, user.ID, map[string]any{
		"from": previous.String(),
		"to":   user.Role.String(),
	}))
	return user, nil
}

// UpdateStatus activates or deactivates user id.
func (s *UserService) UpdateStatus(ctx context.Context, actor access.Actor, id int, active bool) (types.User, error) {
	if err := access.RequireAdmin(actor); err != nil {
		return types.User{}, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if err := access.AuthorizeStatusChange(actor, id, active); err != nil {
		return types.User{}, err
	}
	user.IsActive = active

	user, err = s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, err
	}

	s.events.Publish(ctx, events.New(events.UserStatusChanged, actor.ID, user.ID, map[string]any{
		"is_active": user.IsActive,
	}))
	return user, nil
}

// Promote grants the admin role to the account with email. It backs the
// bootstrap command and bypasses the access policy.
func (s *UserService) Promote(ctx context.Context, email string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return types.User{}, err
	}
	if user.Role == types.RoleAdmin {
		return user, nil
	}

	previous := user.Role
	user.Role = types.RoleAdmin
	user, err = s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, err
	}

	s.events.Publish(ctx, events.New(events.UserRoleChanged, 0, user.ID, map[string]any{
		"from": previous.String(),
		"to":   user.Role.String(),
	}))
	return user, nil
}
