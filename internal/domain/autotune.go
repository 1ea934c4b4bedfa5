package domain

import (
	"time"

	"github.com/spec-kit/admin-ops-service/pkg/nullable"
)

// AutotuneStatus summarizes how much of a batch was applied.
type AutotuneStatus string

const (
	AutotuneAccepted         AutotuneStatus = "accepted"
	AutotuneRejected         AutotuneStatus = "rejected"
	AutotunePartiallyApplied AutotuneStatus = "partially_applied"
	// AutotuneApplying marks a batch reserved in the store whose actions are
	// being applied. A batch left in this state never finished.
	AutotuneApplying AutotuneStatus = "applying"
)

// AdjustmentAction is a proposed change to one balance parameter.
type AdjustmentAction struct {
	ActionID  string  `json:"actionId"`
	Parameter string  `json:"parameter"`
	Delta     float64 `json:"delta"`
	// RollbackAfterSeconds schedules the inverse adjustment when set.
	RollbackAfterSeconds nullable.Nullable[int64] `json:"rollbackAfterSeconds,omitzero"`
	Reason               string                   `json:"reason,omitempty"`
}

// Inverse returns the adjustment that undoes a.
func (a AdjustmentAction) Inverse() AdjustmentAction {
	inv := a
	inv.Delta = -a.Delta
	inv.RollbackAfterSeconds = nullable.Absent[int64]()
	return inv
}

// AppliedAction records a forward adjustment that took effect.
type AppliedAction struct {
	Action    AdjustmentAction `json:"action"`
	OldValue  float64          `json:"oldValue"`
	NewValue  float64          `json:"newValue"`
	AppliedAt time.Time        `json:"appliedAt"`
}

// RejectedAction records an adjustment that failed validation.
type RejectedAction struct {
	Action AdjustmentAction `json:"action"`
	Reason string           `json:"reason"`
}

// RollbackState tracks a scheduled rollback.
type RollbackState string

const (
	RollbackPending   RollbackState = "pending"
	RollbackCanceled  RollbackState = "canceled"
	RollbackApplied   RollbackState = "applied"
	RollbackFailed    RollbackState = "failed"
	RollbackEscalated RollbackState = "escalated"
)

// IsFinal reports whether no further rollback attempt will happen.
func (s RollbackState) IsFinal() bool {
	return s == RollbackCanceled || s == RollbackApplied || s == RollbackEscalated
}

// ScheduledRollback is the deferred inverse of an applied action.
type ScheduledRollback struct {
	Action     AdjustmentAction             `json:"action"`
	RollbackAt time.Time                    `json:"rollbackAt"`
	State      RollbackState                `json:"state"`
	Attempts   int                          `json:"attempts"`
	LastError  nullable.Nullable[string]    `json:"lastError,omitzero"`
	SettledAt  nullable.Nullable[time.Time] `json:"settledAt,omitzero"`

	// InFlightSince is set while an attempt has been claimed but its outcome
	// is not yet stored.
	InFlightSince nullable.Nullable[time.Time] `json:"inFlightSince,omitzero"`
}

// AutotuneResult is the outcome of one adjustment batch.
type AutotuneResult struct {
	BatchID            string              `json:"batchId"`
	Status             AutotuneStatus      `json:"status"`
	AppliedActions     []AppliedAction     `json:"appliedActions"`
	RejectedActions    []RejectedAction    `json:"rejectedActions"`
	ScheduledRollbacks []ScheduledRollback `json:"scheduledRollbacks"`
	SubmittedBy        string              `json:"submittedBy"`
	CreatedAt          time.Time           `json:"createdAt"`
	Version            int64               `json:"version"`
}

// RollbackIndex maps an action id to its batch so cancellation can be keyed
// by action id alone.
type RollbackIndex struct {
	ActionID string `json:"actionId"`
	BatchID  string `json:"batchId"`
}

// ManualReviewItem is handed to operators when a rollback cannot be applied.
type ManualReviewItem struct {
	BatchID     string           `json:"batchId"`
	Action      AdjustmentAction `json:"action"`
	Attempts    int              `json:"attempts"`
	LastError   string           `json:"lastError"`
	EscalatedAt time.Time        `json:"escalatedAt"`
}
