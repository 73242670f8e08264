package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "trustbank/internal/jwt_token"
	"trustbank/internal/platform/config"
)

var testCfg = config.Server{JWTSigningKey: "devtoken-test-key", JWTIssuer: "trustbank"}

func TestRunMintsValidToken(t *testing.T) {
	userID := uuid.NewString()
	var stdout, stderr bytes.Buffer

	code := run([]string{"-user", userID, "-role", "admin", "-name", "Admin User"}, testCfg, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	claims, err := jwttoken.NewJWTService(testCfg.JWTSigningKey, testCfg.JWTIssuer).
		ValidateToken(strings.TrimSpace(stdout.String()))
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "Admin User", claims.Name)
}

func TestRunUsageErrors(t *testing.T) {
	tests := map[string][]string{
		"unknown role": {"-role", "auditor"},
		"bad user":     {"-user", "not-a-uuid"},
		"non-positive": {"-ttl", "0s"},
		"unknown flag": {"-tenant", "x"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, 2, run(args, testCfg, &stdout, &stderr))
			assert.Empty(t, stdout.String())
			assert.NotEmpty(t, stderr.String())
		})
	}
}
