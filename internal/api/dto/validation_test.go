package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

func TestValidate_SnakeCaseDetails(t *testing.T) {
	err := Validate(IssueBanRequest{Type: "FOREVER"})
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidationFailed, domainErr.Code)
	assert.Equal(t, "is required", domainErr.Details["player_id"])
	assert.Equal(t, "is required", domainErr.Details["cheat_type"])
	assert.Equal(t, "must be one of: TEMPORARY PERMANENT", domainErr.Details["type"])
}

func TestValidate_NestedActions(t *testing.T) {
	err := Validate(ApplyBatchRequest{BatchID: "b-1"})
	require.Error(t, err)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "actions")

	ok := ApplyBatchRequest{BatchID: "b-1", Actions: []AdjustmentActionRequest{{ActionID: "a-1", Parameter: "weapon.damage", Delta: 2}}}
	assert.NoError(t, Validate(ok))
}

func TestValidate_IncompleteActionLeftToService(t *testing.T) {
	req := ApplyBatchRequest{BatchID: "b-1", Actions: []AdjustmentActionRequest{
		{ActionID: "a-1", Parameter: "weapon.damage", Delta: 0.1},
		{ActionID: "a-2"},
		{Parameter: "weapon.damage"},
	}}
	assert.NoError(t, Validate(req))
	assert.Len(t, req.ToInput().Actions, 3)
}

func TestReviewRequest_BindsActionField(t *testing.T) {
	var req ReviewRequest
	require.NoError(t, json.Unmarshal([]byte(`{"decision":"CONFIRM","action":"TEMPORARY_BAN","banDurationDays":7}`), &req))
	require.NoError(t, Validate(req))

	in := req.ToInput()
	assert.Equal(t, "TEMPORARY_BAN", string(in.Action))
	days, ok := in.BanDurationDays.Get()
	require.True(t, ok)
	assert.Equal(t, 7, days)
}

func TestValidate_AcceptsCompleteIncident(t *testing.T) {
	req := CreateIncidentRequest{Title: "login outage", Severity: "critical", DetectedAt: time.Now()}
	assert.NoError(t, Validate(req))

	req.Severity = "sev0"
	assert.True(t, apperrors.Is(Validate(req), apperrors.CodeValidationFailed))
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "ban_duration_days", toSnakeCase("BanDurationDays"))
	assert.Equal(t, "player_id", toSnakeCase("PlayerID"))
	assert.Equal(t, "sla_breach_at", toSnakeCase("SLABreachAt"))
}
