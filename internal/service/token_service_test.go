package service

import (
	"testing"
	"time"

	"github.com/assessly/assessly-backend/internal/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func tokenService() *TokenService {
	return NewTokenService(&config.Config{
		JWTSecret: "test-secret",
		JWTExpiry: time.Hour,
	})
}

func TestIssueAndValidateToken(t *testing.T) {
	svc := tokenService()
	sessionID := uuid.New().String()

	token, err := svc.IssueSessionToken(sessionID)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, sessionID, claims.SessionID)
	require.Equal(t, sessionID, claims.Subject)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := tokenService()

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := tokenService().IssueSessionToken(uuid.New().String())
	require.NoError(t, err)

	other := NewTokenService(&config.Config{JWTSecret: "different", JWTExpiry: time.Hour})
	_, err = other.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService(&config.Config{
		JWTSecret: "test-secret",
		JWTExpiry: -time.Minute,
	})

	token, err := svc.IssueSessionToken(uuid.New().String())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}
