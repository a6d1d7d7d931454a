package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	token, expiresAt, err := tm.Issue("u-1", RoleStaff, "g1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, RoleStaff, claims.Role)
	assert.Equal(t, "g1", claims.GuildID)
}

func TestIssueRejectsBadInput(t *testing.T) {
	tm := NewTokenManager("secret", 0)
	_, _, err := tm.Issue("", RoleUser, "")
	assert.Error(t, err)
	_, _, err = tm.Issue("u-1", Role("admin"), "")
	assert.Error(t, err)
}

func TestParseRejectsInvalidTokens(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	token, _, err := tm.Issue("u-1", RoleUser, "")
	require.NoError(t, err)

	_, err = NewTokenManager("other-secret", 60).Parse(token)
	assert.Error(t, err, "wrong secret")

	expired := NewTokenManager("secret", 1)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue("u-1", RoleUser, "")
	require.NoError(t, err)
	_, err = tm.Parse(old)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Role:             RoleGateway,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.Parse(unsigned)
	assert.Error(t, err)
}

func newTestApp(tm *TokenManager, guards ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	handlers := append([]fiber.Handler{NewAuthMiddleware(tm).Handle}, guards...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return c.SendStatus(http.StatusTeapot)
		}
		return c.SendString(principal.ActorID + "|" + string(principal.Role) + "|" + principal.Via)
	})
	app.Get("/whoami", handlers...)
	return app
}

func call(t *testing.T, app *fiber.App, header string, actor string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set(fiber.HeaderAuthorization, header)
	}
	if actor != "" {
		req.Header.Set(ActorHeader, actor)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	staffToken, _, err := tm.Issue("alice", RoleStaff, "g1")
	require.NoError(t, err)
	gatewayToken, _, err := tm.Issue("bot", RoleGateway, "")
	require.NoError(t, err)
	app := newTestApp(tm)

	status, body := call(t, app, "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthorized, body)

	status, _ = call(t, app, "Token "+staffToken, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, app, "Bearer garbage", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = call(t, app, "Bearer "+staffToken, "mallory")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice|staff|", body, "only the gateway may act for others")

	status, body = call(t, app, "bearer "+gatewayToken, "user-9")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-9|gateway|bot", body)

	status, body = call(t, app, "Bearer "+gatewayToken, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bot|gateway|", body)
}

func TestRoleGuards(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	userToken, _, err := tm.Issue("user-1", RoleUser, "")
	require.NoError(t, err)
	staffToken, _, err := tm.Issue("alice", RoleStaff, "")
	require.NoError(t, err)
	gatewayToken, _, err := tm.Issue("bot", RoleGateway, "")
	require.NoError(t, err)

	staffOnly := newTestApp(tm, RequireStaff())
	status, body := call(t, staffOnly, "Bearer "+userToken, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeForbidden, body)
	status, _ = call(t, staffOnly, "Bearer "+staffToken, "")
	assert.Equal(t, http.StatusOK, status)
	status, _ = call(t, staffOnly, "Bearer "+gatewayToken, "")
	assert.Equal(t, http.StatusOK, status)

	gatewayOnly := newTestApp(tm, RequireRole(RoleGateway))
	status, _ = call(t, gatewayOnly, "Bearer "+staffToken, "")
	assert.Equal(t, http.StatusForbidden, status)

	anyone := newTestApp(tm, RequireAny())
	status, _ = call(t, anyone, "Bearer "+userToken, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestRequireRoleWithoutPrincipal(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(apperrors.ToDomainError(err).HTTPStatus).SendString("")
		},
	})
	app.Get("/", RequireAny(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
