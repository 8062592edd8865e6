// Package auth handles credential verification against the account table.
package auth

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/splashsrv/splashsrv/internal/core/data"
)

var (
	ErrUnknown            = errors.New("an unexpected error occurred, please contact your server administrator")
	ErrInvalidCredentials = errors.New("username/password combination not found")
	ErrAccountBanned      = errors.New("this account has been suspended")
)

// Indirections for testing.
var (
	findAccount       = data.FindAccountByUsername
	createAccount     = data.CreateAccount
	softDeleteAccount = data.DeleteAccount
)

// VerifyAccount checks the account table for the specified credentials
// combination and validates that the account is accessible.
func VerifyAccount(db *gorm.DB, username, password string) (*data.Account, error) {
	account, err := findAccount(db, username)
	if err != nil {
		return nil, ErrUnknown
	}

	if account == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(account.Password), stripPadding([]byte(password))) != nil {
		return nil, ErrInvalidCredentials
	}
	if account.Banned {
		return nil, ErrAccountBanned
	}

	return account, nil
}

// CreateAccount takes the specified credentials and creates a new record in
// the database, returning either the result or any errors encountered.
func CreateAccount(db *gorm.DB, username, password, name string) (*data.Account, error) {
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	account := &data.Account{
		Username:         username,
		Password:         hashed,
		Name:             name,
		RegistrationDate: time.Now(),
	}

	if err := createAccount(db, account); err != nil {
		return nil, err
	}

	return account, nil
}

// DeleteAccount soft-deletes the account with the specified username.
func DeleteAccount(db *gorm.DB, username string) error {
	account, err := findAccount(db, username)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrInvalidCredentials
	}
	return softDeleteAccount(db, account)
}

// HashPassword returns a bcrypt hash of password suitable for storing in the
// account table.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(stripPadding([]byte(password)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Credentials arrive in fixed-width NUL padded fields; the padding is not
// part of the password.
func stripPadding(b []byte) []byte {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != 0 {
			return b[:i+1]
		}
	}
	return b[:0]
}
