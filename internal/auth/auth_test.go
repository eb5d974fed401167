package auth

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machine-manual-backend/config"
)

// Cheap parameters keep the tests fast.
var testParams = Argon2idParams{Time: 1, MemoryKiB: 1024, Parallelism: 1, KeyLen: 32, SaltLen: 16}

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("s3cret", testParams)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := VerifyPassword(hash, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := HashPassword("s3cret", testParams)
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salts must differ")

	_, err = HashPassword("", testParams)
	assert.Error(t, err)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	for _, encoded := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$a$b", "$argon2id$v=18$m=1,t=1,p=1$a$b", "$argon2id$v=19$m=x,t=1,p=1$a$b"} {
		_, err := VerifyPassword(encoded, "pw")
		assert.Error(t, err, encoded)
	}
}

func TestAdminVerify(t *testing.T) {
	logger, hook := test.NewNullLogger()
	hash, err := HashPassword("hashed-pw", testParams)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		cfg      config.AdminConfig
		user     string
		pass     string
		expected bool
	}{
		{"plaintext match", config.AdminConfig{Username: "admin", Password: "admin123"}, "admin", "admin123", true},
		{"plaintext wrong password", config.AdminConfig{Username: "admin", Password: "admin123"}, "admin", "nope", false},
		{"wrong user", config.AdminConfig{Username: "admin", Password: "admin123"}, "root", "admin123", false},
		{"hash match", config.AdminConfig{Username: "admin", PasswordHash: hash}, "admin", "hashed-pw", true},
		{"hash wins over password", config.AdminConfig{Username: "admin", Password: "plain", PasswordHash: hash}, "admin", "plain", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NewAdmin(tc.cfg, logger).Verify(tc.user, tc.pass))
		})
	}

	hook.Reset()
	assert.False(t, NewAdmin(config.AdminConfig{Username: "admin", PasswordHash: "garbage"}, logger).Verify("admin", "x"))
	require.NotNil(t, hook.LastEntry())
}
