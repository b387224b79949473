// Package compliance carries the ambient audit trail and emergency-halt
// controls forward from the teacher's internal/compliance/surveillance.go.
// The order-book-shaped checks that package also ran — wash-trading,
// spoofing, and layering detection, tiered position limits — have no
// counterpart here: this engine has no order book and no position-limit
// concept, so those detectors are not carried forward (see DESIGN.md).
package compliance

import (
	"context"
	"time"

	"github.com/ccmarkets/engine/internal/apperr"
	"github.com/ccmarkets/engine/internal/models"
	"github.com/ccmarkets/engine/internal/store"
)

// Recorder appends audit entries and manages trading halts.
type Recorder struct {
	store store.Store
}

func New(s store.Store) *Recorder {
	return &Recorder{store: s}
}

// Log appends an immutable audit entry.
func (r *Recorder) Log(ctx context.Context, userID string, action models.AuditAction, entityType, entityID, description string) error {
	return r.store.AppendAudit(ctx, &models.AuditEntry{
		Timestamp:   time.Now().UTC(),
		UserID:      userID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
	})
}

// History returns the most recent audit entries, newest first.
func (r *Recorder) History(ctx context.Context, limit int) ([]*models.AuditEntry, error) {
	return r.store.ListAudit(ctx, limit)
}

// Halt halts trading on marketID, or globally when marketID is empty.
func (r *Recorder) Halt(ctx context.Context, marketID, reason, initiatedBy string) error {
	h := &models.EmergencyHalt{
		MarketID:    marketID,
		Reason:      reason,
		InitiatedBy: initiatedBy,
		StartedAt:   time.Now().UTC(),
		IsActive:    true,
	}
	if err := r.store.SetHalt(ctx, h); err != nil {
		return err
	}
	return r.Log(ctx, initiatedBy, models.AuditActionHalt, "market", marketID, "trading halted: "+reason)
}

// Resume lifts a previously-set halt.
func (r *Recorder) Resume(ctx context.Context, marketID, liftedBy string) error {
	h, err := r.store.GetHalt(ctx, marketID)
	if err != nil {
		return apperr.NotFound("no active halt for %q", marketID)
	}
	h.IsActive = false
	now := time.Now().UTC()
	h.EndsAt = &now
	if err := r.store.SetHalt(ctx, h); err != nil {
		return err
	}
	return r.Log(ctx, liftedBy, models.AuditActionHalt, "market", marketID, "trading resumed")
}
