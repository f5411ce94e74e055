package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService(t *testing.T) *AdminTokenServiceImpl {
	t.Helper()
	svc, err := NewAdminTokenService(time.Hour, "test-issuer", testSecret)
	require.NoError(t, err)
	return svc.(*AdminTokenServiceImpl)
}

func TestNewAdminTokenService(t *testing.T) {
	tests := []struct {
		name        string
		ttl         time.Duration
		issuer      string
		secretKey   string
		expectError bool
	}{
		{
			name:      "valid configuration",
			ttl:       time.Hour,
			issuer:    "test-issuer",
			secretKey: testSecret,
		},
		{
			name:        "missing secret key",
			ttl:         time.Hour,
			issuer:      "test-issuer",
			expectError: true,
		},
		{
			name:        "zero ttl",
			issuer:      "test-issuer",
			secretKey:   testSecret,
			expectError: true,
		},
		{
			name:      "empty issuer",
			ttl:       time.Hour,
			secretKey: testSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewAdminTokenService(tt.ttl, tt.issuer, tt.secretKey)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestAdminTokenRoundTrip(t *testing.T) {
	svc := createTestTokenService(t)

	token, expiresAt, err := svc.GenerateAdminToken("sales-ops")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ValidateAdminToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sales-ops", claims.Subject)
	assert.Equal(t, "pricing_admin", claims.Role)
	assert.NotEmpty(t, claims.TokenID)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt, time.Second)
}

func TestValidateAdminTokenRejects(t *testing.T) {
	svc := createTestTokenService(t)

	otherSecret, err := NewAdminTokenService(time.Hour, "test-issuer", "another-secret-key-for-jwt-signing-32")
	require.NoError(t, err)
	foreign, _, err := otherSecret.GenerateAdminToken("intruder")
	require.NoError(t, err)

	otherIssuer, err := NewAdminTokenService(time.Hour, "someone-else", testSecret)
	require.NoError(t, err)
	wrongIssuer, _, err := otherIssuer.GenerateAdminToken("sales-ops")
	require.NoError(t, err)

	wrongRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "customer",
		"iss":  "test-issuer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "pricing_admin",
		"iss":  "test-issuer",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"garbage", "not-a-token", ErrTokenInvalid},
		{"signed with another secret", foreign, ErrTokenInvalid},
		{"another issuer", wrongIssuer, ErrTokenInvalid},
		{"wrong role", wrongRole, ErrTokenWrongRole},
		{"no expiry", noExpiry, ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.ValidateAdminToken(tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateAdminTokenExpired(t *testing.T) {
	svc := createTestTokenService(t)
	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }

	token, _, err := svc.GenerateAdminToken("sales-ops")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateAdminToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
