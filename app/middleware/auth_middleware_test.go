package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/inox-pricing/app/dto"
	"github.com/amirphl/inox-pricing/app/services"
	"github.com/amirphl/inox-pricing/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testAdminToken = "correct-horse-battery-staple-42"
	testJWTSecret  = "0123456789abcdef0123456789abcdef"
)

func newTestApp(t *testing.T) (*fiber.App, services.AdminTokenService) {
	t.Helper()
	tokens, err := services.NewAdminTokenService(time.Hour, "inox-pricing", testJWTSecret)
	require.NoError(t, err)

	auth := NewAuthMiddleware(testAdminToken, tokens, zap.NewNop())
	app := fiber.New()
	app.Use(auth.ResolvePrivilege())
	app.Get("/public", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"privileged": IsPrivileged(c)})
	})
	app.Get("/admin", RequirePrivileged(), func(c fiber.Ctx) error {
		subject, _ := GetAdminSubjectFromContext(c)
		return c.JSON(fiber.Map{"subject": subject})
	})
	return app, tokens
}

func TestResolvePrivilege(t *testing.T) {
	app, tokens := newTestApp(t)
	jwtToken, _, err := tokens.GenerateAdminToken("ops@inox-tables.eu")
	require.NoError(t, err)

	foreign, err := services.NewAdminTokenService(time.Hour, "inox-pricing", "ffffffffffffffffffffffffffffffff")
	require.NoError(t, err)
	forged, _, err := foreign.GenerateAdminToken("mallory")
	require.NoError(t, err)

	tests := []struct {
		name           string
		headers        map[string]string
		wantPrivileged bool
	}{
		{name: "anonymous"},
		{name: "shared admin token", headers: map[string]string{utils.AdminTokenHeader: testAdminToken}, wantPrivileged: true},
		{name: "wrong admin token", headers: map[string]string{utils.AdminTokenHeader: "guess"}},
		{name: "admin jwt", headers: map[string]string{"Authorization": "Bearer " + jwtToken}, wantPrivileged: true},
		{name: "jwt signed with another key", headers: map[string]string{"Authorization": "Bearer " + forged}},
		{name: "basic auth", headers: map[string]string{"Authorization": "Basic Zm9vOmJhcg=="}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/public", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)

			var body map[string]bool
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantPrivileged, body["privileged"])
		})
	}
}

func TestRequirePrivileged(t *testing.T) {
	app, tokens := newTestApp(t)
	jwtToken, _, err := tokens.GenerateAdminToken("ops@inox-tables.eu")
	require.NoError(t, err)

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantCode   string
	}{
		{name: "no credential", wantStatus: fiber.StatusUnauthorized, wantCode: "ADMIN_CREDENTIAL_REQUIRED"},
		{name: "wrong admin token", headers: map[string]string{utils.AdminTokenHeader: "guess"}, wantStatus: fiber.StatusUnauthorized, wantCode: "ADMIN_TOKEN_INVALID"},
		{name: "malformed jwt", headers: map[string]string{"Authorization": "Bearer not-a-jwt"}, wantStatus: fiber.StatusUnauthorized, wantCode: "TOKEN_INVALID"},
		{name: "shared admin token", headers: map[string]string{utils.AdminTokenHeader: testAdminToken}, wantStatus: fiber.StatusOK},
		{name: "admin jwt", headers: map[string]string{"Authorization": "Bearer " + jwtToken}, wantStatus: fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode == "" {
				return
			}

			var body dto.APIResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			detail, ok := body.Error.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, detail["code"])
		})
	}
}

func TestAdminTokenDisabled(t *testing.T) {
	auth := NewAuthMiddleware("", nil, zap.NewNop())
	app := fiber.New()
	app.Use(auth.ResolvePrivilege())
	app.Get("/admin", RequirePrivileged(), func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(utils.AdminTokenHeader, "")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(utils.AdminTokenHeader, "anything")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
