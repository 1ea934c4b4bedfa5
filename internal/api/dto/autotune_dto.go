package dto

import (
	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/service"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
)

// ApplyBatchRequest payload for POST /autotune/batches.
type ApplyBatchRequest struct {
	BatchID string                    `json:"batchId" validate:"required,max=100"`
	Actions []AdjustmentActionRequest `json:"actions" validate:"required,min=1,max=100,dive"`
}

// AdjustmentActionRequest is one parameter adjustment. Only length caps are
// checked here; missing or unknown fields reject the single action in Apply.
type AdjustmentActionRequest struct {
	ActionID             string                   `json:"actionId" validate:"max=100"`
	Parameter            string                   `json:"parameter" validate:"max=200"`
	Delta                float64                  `json:"delta"`
	RollbackAfterSeconds nullable.Nullable[int64] `json:"rollbackAfterSeconds"`
	Reason               string                   `json:"reason" validate:"max=1000"`
}

// ToInput converts the request for the service layer.
func (r ApplyBatchRequest) ToInput() service.ApplyInput {
	actions := make([]domain.AdjustmentAction, 0, len(r.Actions))
	for _, a := range r.Actions {
		actions = append(actions, domain.AdjustmentAction{
			ActionID:             a.ActionID,
			Parameter:            a.Parameter,
			Delta:                a.Delta,
			RollbackAfterSeconds: a.RollbackAfterSeconds,
			Reason:               a.Reason,
		})
	}
	return service.ApplyInput{BatchID: r.BatchID, Actions: actions}
}

// ParameterResponse reports the current value of a balance parameter.
type ParameterResponse struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}
