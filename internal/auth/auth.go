// Package auth checks the single admin credential that guards employee
// management and machine deletion.
package auth

import (
	"crypto/subtle"

	"github.com/sirupsen/logrus"

	"machine-manual-backend/config"
)

// Verifier decides whether a username/password pair is the admin.
type Verifier interface {
	Verify(username, password string) bool
}

// Admin verifies against the configured admin account. A password hash takes
// precedence over a plaintext password.
type Admin struct {
	username     string
	password     string
	passwordHash string
	log          logrus.FieldLogger
}

// NewAdmin creates an Admin from configuration.
func NewAdmin(cfg config.AdminConfig, log logrus.FieldLogger) *Admin {
	return &Admin{
		username:     cfg.Username,
		password:     cfg.Password,
		passwordHash: cfg.PasswordHash,
		log:          log,
	}
}

// Verify compares in constant time.
func (a *Admin) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1

	var passOK bool
	if a.passwordHash != "" {
		ok, err := VerifyPassword(a.passwordHash, password)
		if err != nil {
			a.log.WithError(err).Error("admin password hash is unusable")
			return false
		}
		passOK = ok
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	}
	return userOK && passOK
}
