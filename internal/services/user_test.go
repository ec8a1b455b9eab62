package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewUserService(nil, "test-secret")

	token, err := svc.GenerateJWT("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := svc.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	issuer := NewUserService(nil, "secret-a")
	verifier := NewUserService(nil, "secret-b")

	token, err := issuer.GenerateJWT("user-123")
	require.NoError(t, err)

	_, err = verifier.ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	svc := NewUserService(nil, "test-secret")

	_, err := svc.ValidateJWT("not-a-token")
	assert.Error(t, err)
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := generateCode()
		assert.Len(t, code, codeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(codeChars, c), "unexpected character %q", c)
		}
	}
}
