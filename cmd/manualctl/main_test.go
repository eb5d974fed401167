package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machine-manual-backend/internal/auth"
)

func TestHashPasswordCommand(t *testing.T) {
	var out bytes.Buffer
	hashPasswordCmd.SetOut(&out)
	hashPasswordCmd.SetIn(strings.NewReader("from-stdin\n"))

	require.NoError(t, runHashPassword(hashPasswordCmd, nil))
	hash := strings.TrimSpace(out.String())
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	ok, err := auth.VerifyPassword(hash, "from-stdin")
	require.NoError(t, err)
	assert.True(t, ok)

	hashPasswordCmd.SetIn(strings.NewReader("\n"))
	assert.Error(t, runHashPassword(hashPasswordCmd, nil))
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://flag", baseURL("https://cfg", "https://flag", 5000))
	assert.Equal(t, "https://cfg", baseURL("https://cfg", "", 5000))
	assert.Equal(t, "http://localhost:8080", baseURL("", "", 8080))
}
