package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/admin-ops-service/internal/clock"
	"github.com/spec-kit/admin-ops-service/internal/domain"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

var start = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func TestTokenManager_RoundTrip(t *testing.T) {
	clk := clock.Fake(start)
	tm := NewTokenManager("secret", 30, clk)
	actor := domain.Actor{ID: "mod-1", Role: domain.StaffRoleModerator}

	signed, meta, err := tm.GenerateToken(actor, domain.SubjectTypeStaff)
	require.NoError(t, err)
	assert.Equal(t, start.Add(30*time.Minute), meta.ExpiresAt)

	claims, err := tm.ParseToken(signed)
	require.NoError(t, err)
	assert.Equal(t, actor, claims.Actor())
	assert.Equal(t, domain.SubjectTypeStaff, claims.Subject)
}

func TestTokenManager_Expired(t *testing.T) {
	clk := clock.Fake(start)
	tm := NewTokenManager("secret", 30, clk)
	signed, _, err := tm.GenerateToken(domain.Actor{ID: "a", Role: domain.StaffRoleAdmin}, domain.SubjectTypeStaff)
	require.NoError(t, err)

	clk.Advance(31 * time.Minute)
	_, err = tm.ParseToken(signed)
	assert.Error(t, err)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	clk := clock.Fake(start)
	signed, _, err := NewTokenManager("one", 30, clk).GenerateToken(domain.Actor{ID: "a", Role: domain.StaffRoleAdmin}, domain.SubjectTypeStaff)
	require.NoError(t, err)
	_, err = NewTokenManager("two", 30, clk).ParseToken(signed)
	assert.Error(t, err)
}

func newTestApp(t *testing.T, apiKey string) (*fiber.App, *TokenManager) {
	t.Helper()
	tm := NewTokenManager("secret", 30, clock.Fake(start))
	hash := ""
	if apiKey != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.MinCost)
		require.NoError(t, err)
		hash = string(h)
	}
	mw := NewAuthMiddleware(tm, hash)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(apperrors.ToDomainError(err).HTTPStatus).SendString(apperrors.CodeOf(err))
		},
	})
	app.Get("/whoami", mw.Handle, func(c *fiber.Ctx) error {
		actor, err := ActorFromContext(c)
		if err != nil {
			return err
		}
		return c.SendString(actor.ID + "/" + string(actor.Role))
	})
	app.Get("/admin", mw.Handle, RequireRole(domain.StaffRoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app, tm
}

func TestAuthMiddleware_Bearer(t *testing.T) {
	app, tm := newTestApp(t, "")
	signed, _, err := tm.GenerateToken(domain.Actor{ID: "im-1", Role: domain.StaffRoleIncidentManager}, domain.SubjectTypeStaff)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_APIKey(t *testing.T) {
	app, _ := newTestApp(t, "detector-key")

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(APIKeyHeader, "detector-key")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(APIKeyHeader, "guess")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
