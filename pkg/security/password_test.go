package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCredentials(t *testing.T) {
	creds := NewCredentials(bcrypt.MinCost)
	require.NoError(t, creds.Add("Rose.Gomez@example.com", "Pass@123"))

	assert.NoError(t, creds.Verify("rose.gomez@example.com", "Pass@123"))
	assert.ErrorIs(t, creds.Verify("rose.gomez@example.com", "wrong-pass"), ErrInvalidCredentials)
	assert.ErrorIs(t, creds.Verify("nobody@example.com", "Pass@123"), ErrInvalidCredentials)
}

func TestCredentialsRejectShortPassword(t *testing.T) {
	creds := NewCredentials(bcrypt.MinCost)
	assert.Error(t, creds.Add("a@example.com", "short"))
}
