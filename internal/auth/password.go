// Package auth hashes passwords and issues signed access tokens.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordMismatch = errors.New("password mismatch")

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword compares password against a stored bcrypt hash.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// dummyHash is compared against when the account does not exist so that
// unknown and known emails take comparable time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("notes-dummy-password"), bcrypt.DefaultCost)

// CheckPasswordNoUser burns the same work as CheckPassword and always fails.
func CheckPasswordNoUser(password string) error {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
	return ErrPasswordMismatch
}
