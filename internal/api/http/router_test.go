package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/admin-ops-service/internal/api/http/handlers"
	"github.com/spec-kit/admin-ops-service/internal/auth"
	"github.com/spec-kit/admin-ops-service/internal/clock"
	"github.com/spec-kit/admin-ops-service/internal/config"
	"github.com/spec-kit/admin-ops-service/internal/events"
	"github.com/spec-kit/admin-ops-service/internal/repository"
	"github.com/spec-kit/admin-ops-service/internal/scheduler"
	"github.com/spec-kit/admin-ops-service/internal/service"
	"github.com/spec-kit/admin-ops-service/internal/sla"
	"github.com/spec-kit/admin-ops-service/internal/statemachine"
)

const detectorKey = "detector-secret"

var t0 = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	ctx := context.Background()
	clk := clock.Fake(t0)
	logger := zap.NewNop()
	timers := scheduler.New(clk, logger)
	store := repository.NewStore(repository.NewMemoryBackend())
	audit := repository.NewMemoryTransitionLog()

	deps := service.Dependencies{
		Store:       store,
		Audit:       audit,
		Engine:      statemachine.NewDefaultEngine(clk),
		Clock:       clk,
		Timers:      timers,
		Tracker:     sla.NewTracker(sla.DefaultPolicy(), clk, timers, sla.NewMemoryDeduper()),
		Dispatcher:  events.NewInMemoryDispatcher(),
		Logger:      logger,
		MaxAttempts: repository.DefaultAttempts,
	}
	bounds := map[string]config.ParameterBounds{"weapon.damage": {Min: 10, Max: 40, Initial: 20}}

	staffSvc := service.NewStaffService(store, clk, bcrypt.MinCost)
	_, err := staffSvc.EnsureBootstrapAdmin(ctx, "root@example.com", "correct horse")
	require.NoError(t, err)
	authSvc := service.NewAuthService(staffSvc, auth.NewTokenManager("secret", 60, clk))

	keyHash, err := bcrypt.GenerateFromPassword([]byte(detectorKey), bcrypt.MinCost)
	require.NoError(t, err)

	app := fiber.New()
	RegisterMiddlewares(app, logger, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:     handlers.NewHealthHandler("admin-ops", "test", nil, nil, timers),
		Staff:      handlers.NewStaffHandler(authSvc, staffSvc),
		Incidents:  handlers.NewIncidentsHandler(service.NewIncidentService(deps)),
		Moderation: handlers.NewModerationHandler(service.NewModerationService(deps)),
		Autotune: handlers.NewAutotuneHandler(service.NewAutotuneService(deps, service.AutotuneDependencies{
			Balances: service.NewMemoryBalanceStore(bounds),
			Reviews:  service.NewMemoryReviewQueue(),
			Bounds:   bounds,
			Settings: config.AutotuneConfig{MaxDelta: 0.25, RetryDelaySeconds: 60, MaxRollbackSeconds: 3600},
		})),
		Tickets:        handlers.NewTicketsHandler(service.NewTicketService(deps)),
		Audit:          handlers.NewAuditHandler(service.NewAuditService(audit)),
		AuthMiddleware: auth.NewAuthMiddleware(authSvc.TokenManager(), string(keyHash)),
	})
	return app
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func login(t *testing.T, app *fiber.App) map[string]string {
	t.Helper()
	status, env := do(t, app, http.MethodPost, "/auth/staff/login",
		map[string]string{"email": "root@example.com", "password": "correct horse"}, nil)
	require.Equal(t, http.StatusOK, status)

	var payload struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.NotEmpty(t, payload.Auth.Token)
	return map[string]string{"Authorization": "Bearer " + payload.Auth.Token}
}

func TestIncidentLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	headers := login(t, app)

	status, env := do(t, app, http.MethodPost, "/api/v1/incidents", map[string]any{
		"title":      "login outage",
		"severity":   "critical",
		"detectedAt": t0.Format(time.RFC3339),
	}, headers)
	require.Equal(t, http.StatusCreated, status)
	var inc struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &inc))
	assert.Equal(t, "new", inc.Status)

	status, env = do(t, app, http.MethodPost, "/api/v1/incidents/"+inc.ID+"/transitions",
		map[string]any{"to": "closed"}, headers)
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_EDGE", env.Error.Code)

	status, _ = do(t, app, http.MethodPost, "/api/v1/incidents/"+inc.ID+"/acknowledge", nil, headers)
	assert.Equal(t, http.StatusOK, status)

	status, env = do(t, app, http.MethodGet, "/api/v1/incidents/"+inc.ID, nil, headers)
	require.Equal(t, http.StatusOK, status)
	var detail struct {
		History []map[string]any `json:"history"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Len(t, detail.History, 2)
}

func TestValidationErrorsRenderDetails(t *testing.T) {
	app := newTestApp(t)
	headers := login(t, app)

	status, env := do(t, app, http.MethodPost, "/api/v1/incidents", map[string]any{"title": "x"}, headers)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Contains(t, env.Error.Details, "severity")
	assert.Contains(t, env.Error.Details, "detected_at")
}

func TestAuthenticationAndRoleGates(t *testing.T) {
	app := newTestApp(t)

	status, env := do(t, app, http.MethodGet, "/api/v1/incidents", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	detector := map[string]string{auth.APIKeyHeader: detectorKey}
	status, _ = do(t, app, http.MethodPost, "/api/v1/moderation/reports", map[string]any{
		"playerId":  "p-1",
		"cheatType": "aimbot",
	}, detector)
	assert.Equal(t, http.StatusCreated, status)

	status, _ = do(t, app, http.MethodGet, "/api/v1/staff", nil, detector)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, app, http.MethodGet, "/api/v1/nope", nil, detector)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealthReportsDisabledBackends(t *testing.T) {
	app := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAutotuneBatchRejectsActionsIndividually(t *testing.T) {
	app := newTestApp(t)
	detector := map[string]string{auth.APIKeyHeader: detectorKey}

	status, env := do(t, app, http.MethodPost, "/api/v1/autotune/batches", map[string]any{
		"batchId": "b-1",
		"actions": []map[string]any{
			{"actionId": "a-1", "parameter": "weapon.damage", "delta": 0.1},
			{"actionId": "a-2", "delta": 0.1},
		},
	}, detector)
	require.Equal(t, http.StatusCreated, status, "error: %+v", env.Error)

	var result struct {
		Status          string `json:"status"`
		AppliedActions  []any  `json:"appliedActions"`
		RejectedActions []struct {
			Action struct {
				ActionID string `json:"actionId"`
			} `json:"action"`
			Reason string `json:"reason"`
		} `json:"rejectedActions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "partially_applied", result.Status)
	assert.Len(t, result.AppliedActions, 1)
	require.Len(t, result.RejectedActions, 1)
	assert.Equal(t, "a-2", result.RejectedActions[0].Action.ActionID)
	assert.Contains(t, result.RejectedActions[0].Reason, "unknown parameter")
}
