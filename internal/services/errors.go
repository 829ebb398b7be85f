package services

import "errors"

var (
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrUnauthenticated is returned when a token does not resolve to an
	// active user.
	ErrUnauthenticated = errors.New("could not validate credentials")
	// ErrExportDisabled is returned when no export backend is configured.
	ErrExportDisabled = errors.New("note export is not configured")
)
