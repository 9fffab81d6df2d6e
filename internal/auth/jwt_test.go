package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	jm := NewJWTManager("test-secret", 15*time.Minute)
	userID := uuid.New()

	token, err := jm.Generate(userID, RoleTechnician)
	require.NoError(t, err)

	claims, err := jm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, RoleTechnician, claims.Role)
}

func TestVerify_WrongSecret(t *testing.T) {
	jm := NewJWTManager("test-secret", 15*time.Minute)
	other := NewJWTManager("other-secret", 15*time.Minute)

	token, err := jm.Generate(uuid.New(), RoleClient)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	jm := NewJWTManager("test-secret", -time.Minute)

	token, err := jm.Generate(uuid.New(), RoleClient)
	require.NoError(t, err)

	_, err = jm.Verify(token)
	assert.Error(t, err)
}

func TestVerify_RejectsUnexpectedSigningMethod(t *testing.T) {
	jm := NewJWTManager("test-secret", 15*time.Minute)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": uuid.New().String()})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jm.Verify(token)
	assert.Error(t, err)
}
