// Package repository persists workflow entities as versioned JSON documents.
// Every mutation goes through CompareAndSwap, which applies a set of writes
// atomically only if each target is still at the version the caller read.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/admin-ops-service/internal/domain"
)

var (
	// ErrNotFound is returned when no entity exists under the key.
	ErrNotFound = errors.New("entity not found")
	// ErrVersionConflict is returned when a write's expected version is stale.
	ErrVersionConflict = errors.New("version conflict")
)

// Entity kinds stored alongside the lifecycle-managed ones.
const (
	KindRCA            = "rca"
	KindActiveBanSlot  = "active_ban_slot"
	KindAutotuneResult = "autotune_result"
	KindRollbackIndex  = "rollback_index"
	KindStaffMember    = "staff_member"
)

// Record is one stored document.
type Record struct {
	Kind      string
	ID        string
	Version   int64
	Body      []byte
	UpdatedAt time.Time
}

// Write replaces the document at (Kind, ID) if it is still at
// ExpectedVersion. ExpectedVersion 0 means the document must not exist yet.
// A successful write stores version ExpectedVersion+1.
type Write struct {
	Kind            string
	ID              string
	ExpectedVersion int64
	Body            []byte
}

// Backend is the versioned entity store.
type Backend interface {
	Get(ctx context.Context, kind, id string) (Record, error)
	List(ctx context.Context, kind string) ([]Record, error)
	// CompareAndSwap applies all writes or none of them.
	CompareAndSwap(ctx context.Context, writes ...Write) error
}

func conflict(kind, id string, expected, actual int64) error {
	return fmt.Errorf("%w: %s/%s expected version %d, found %d", ErrVersionConflict, kind, id, expected, actual)
}

func checkDistinct(writes []Write) error {
	seen := make(map[string]struct{}, len(writes))
	for _, w := range writes {
		key := w.Kind + "/" + w.ID
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate write for %s", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Store groups the typed collections used by the workflows.
type Store struct {
	Backend         Backend
	Incidents       *Collection[domain.Incident]
	RCAs            *Collection[domain.RcaRecord]
	Bans            *Collection[domain.Ban]
	Appeals         *Collection[domain.Appeal]
	Reports         *Collection[domain.CheatReport]
	BanSlots        *Collection[domain.ActiveBanSlot]
	AutotuneResults *Collection[domain.AutotuneResult]
	RollbackIndex   *Collection[domain.RollbackIndex]
	Tickets         *Collection[domain.SupportTicket]
	Staff           *Collection[domain.StaffMember]
}

// NewStore wires typed collections over backend.
func NewStore(backend Backend) *Store {
	return &Store{
		Backend: backend,
		Incidents: NewCollection(backend, string(domain.KindIncident),
			func(v *domain.Incident, ver int64) { v.Version = ver }),
		RCAs: NewCollection(backend, KindRCA,
			func(v *domain.RcaRecord, ver int64) { v.Version = ver }),
		Bans: NewCollection(backend, string(domain.KindBan),
			func(v *domain.Ban, ver int64) { v.Version = ver }),
		Appeals: NewCollection(backend, string(domain.KindAppeal),
			func(v *domain.Appeal, ver int64) { v.Version = ver }),
		Reports: NewCollection(backend, string(domain.KindCheatReport),
			func(v *domain.CheatReport, ver int64) { v.Version = ver }),
		BanSlots: NewCollection[domain.ActiveBanSlot](backend, KindActiveBanSlot, nil),
		AutotuneResults: NewCollection(backend, KindAutotuneResult,
			func(v *domain.AutotuneResult, ver int64) { v.Version = ver }),
		RollbackIndex: NewCollection[domain.RollbackIndex](backend, KindRollbackIndex, nil),
		Tickets: NewCollection(backend, string(domain.KindSupportTicket),
			func(v *domain.SupportTicket, ver int64) { v.Version = ver }),
		Staff: NewCollection(backend, KindStaffMember,
			func(v *domain.StaffMember, ver int64) { v.Version = ver }),
	}
}

// BanSlotID keys the active ban slot of a (player, cause) pair.
func BanSlotID(playerID, cheatType string) string {
	return playerID + "|" + cheatType
}
