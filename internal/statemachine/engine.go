// Package statemachine validates lifecycle transitions for every entity kind
// against a data-described graph. Workflows compute the next state through
// Transition and persist it themselves; the returned record is appended to the
// audit log once the write commits.
package statemachine

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/spec-kit/admin-ops-service/internal/clock"
	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/observability"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

// Guard checks auxiliary data required by an edge. It returns a
// MISSING_GUARD_DATA error (or INVALID_DEADLINE for bad timestamps) when the
// data is absent or inconsistent.
type Guard func(data any) error

// Edge is a legal move between two states.
type Edge struct {
	// Roles allowed to take the edge. Empty means any authenticated actor.
	Roles []domain.StaffRole
	Guard Guard
}

// Graph is the transition table of one entity kind.
type Graph struct {
	Kind    domain.EntityKind
	Initial []string
	Edges   map[string]map[string]Edge
}

// Request asks the engine to move an entity from one state to another.
type Request struct {
	Kind     domain.EntityKind
	EntityID string
	From     string
	To       string
	Actor    domain.Actor
	Data     any
	Comment  string
}

// Engine holds the graphs of all entity kinds.
type Engine struct {
	graphs map[domain.EntityKind]Graph
	clock  clock.Clock
}

// NewEngine builds an engine over the given graphs.
func NewEngine(clk clock.Clock, graphs ...Graph) *Engine {
	e := &Engine{graphs: make(map[domain.EntityKind]Graph, len(graphs)), clock: clk}
	for _, g := range graphs {
		e.graphs[g.Kind] = g
	}
	return e
}

// NewDefaultEngine builds an engine with the standard lifecycle tables.
func NewDefaultEngine(clk clock.Clock) *Engine {
	return NewEngine(clk, DefaultGraphs()...)
}

// Transition validates req and returns the audit record for the accepted move.
// Rejections are typed: INVALID_EDGE, ACTOR_NOT_AUTHORIZED, MISSING_GUARD_DATA.
func (e *Engine) Transition(req Request) (domain.TransitionRecord, error) {
	graph, ok := e.graphs[req.Kind]
	if !ok {
		return domain.TransitionRecord{}, apperrors.NewInternalError(fmt.Errorf("no transition graph for %q", req.Kind))
	}

	details := map[string]any{
		"entity_kind": req.Kind,
		"entity_id":   req.EntityID,
		"from":        req.From,
		"to":          req.To,
	}

	edge, ok := graph.Edges[req.From][req.To]
	if !ok {
		details["allowed"] = e.Allowed(req.Kind, req.From)
		return e.reject(req, apperrors.NewInvalidEdge(
			fmt.Sprintf("%s cannot move from %s to %s", req.Kind, req.From, req.To), details))
	}
	if !roleAllowed(edge.Roles, req.Actor.Role) {
		details["actor_role"] = req.Actor.Role
		return e.reject(req, apperrors.NewActorNotAuthorized(
			fmt.Sprintf("role %s may not move %s to %s", req.Actor.Role, req.Kind, req.To), details))
	}
	if edge.Guard != nil {
		if err := edge.Guard(req.Data); err != nil {
			return e.reject(req, err)
		}
	}

	observability.TransitionsTotal.WithLabelValues(string(req.Kind), req.To).Inc()
	return e.record(req), nil
}

// Create validates the initial state of a new entity and returns its
// creation record (from is empty).
func (e *Engine) Create(kind domain.EntityKind, entityID, state string, actor domain.Actor) (domain.TransitionRecord, error) {
	graph, ok := e.graphs[kind]
	if !ok {
		return domain.TransitionRecord{}, apperrors.NewInternalError(fmt.Errorf("no transition graph for %q", kind))
	}
	for _, initial := range graph.Initial {
		if initial == state {
			req := Request{Kind: kind, EntityID: entityID, To: state, Actor: actor}
			observability.TransitionsTotal.WithLabelValues(string(kind), state).Inc()
			return e.record(req), nil
		}
	}
	return domain.TransitionRecord{}, apperrors.NewInvalidEdge(
		fmt.Sprintf("%s cannot start in %s", kind, state),
		map[string]any{"entity_kind": kind, "entity_id": entityID, "to": state})
}

// Allowed lists the states reachable from state, sorted.
func (e *Engine) Allowed(kind domain.EntityKind, state string) []string {
	graph, ok := e.graphs[kind]
	if !ok {
		return nil
	}
	next := make([]string, 0, len(graph.Edges[state]))
	for to := range graph.Edges[state] {
		next = append(next, to)
	}
	sort.Strings(next)
	return next
}

// IsTerminal reports whether no edge leaves state.
func (e *Engine) IsTerminal(kind domain.EntityKind, state string) bool {
	return len(e.graphs[kind].Edges[state]) == 0
}

func (e *Engine) record(req Request) domain.TransitionRecord {
	return domain.TransitionRecord{
		ID:         uuid.NewString(),
		EntityKind: req.Kind,
		EntityID:   req.EntityID,
		From:       req.From,
		To:         req.To,
		ActorID:    req.Actor.ID,
		ActorRole:  req.Actor.Role,
		Comment:    req.Comment,
		OccurredAt: e.clock.Now(),
	}
}

func (e *Engine) reject(req Request, err error) (domain.TransitionRecord, error) {
	observability.TransitionRejectionsTotal.WithLabelValues(string(req.Kind), apperrors.CodeOf(err)).Inc()
	return domain.TransitionRecord{}, err
}

// roleAllowed lets ADMIN through every edge, including SYSTEM-only ones.
func roleAllowed(roles []domain.StaffRole, role domain.StaffRole) bool {
	if role == domain.StaffRoleAdmin {
		return true
	}
	if len(roles) == 0 {
		return role.Valid()
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
