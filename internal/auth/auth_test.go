package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	token, exp, err := Issue("user-1", "student", "learnhub", "secret", time.Hour)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := Parse(token, "secret", "learnhub")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestParseRejectsWrongKey(t *testing.T) {
	token, _, err := Issue("user-1", "student", "learnhub", "secret", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, "other-secret", "learnhub")
	assert.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token, _, err := Issue("user-1", "student", "someone-else", "secret", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, "secret", "learnhub")
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	token, _, err := Issue("user-1", "student", "learnhub", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token, "secret", "learnhub")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
	assert.False(t, CheckPassword("", "hunter22"))
}
