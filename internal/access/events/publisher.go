package events

import (
	"context"

	"github.com/tillsup/tillsup-backend/internal/access/domain"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/logger"
	"github.com/tillsup/tillsup-backend/pkg/messaging"
)

// Publisher emits access events to the access.events exchange. Publishing is
// best effort: a broker hiccup is logged and the originating request still
// succeeds, because the database is the source of truth.
type Publisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPublisher creates a new access event publisher
func NewPublisher(publisher *messaging.Publisher, log *logger.Logger) *Publisher {
	return &Publisher{
		publisher: publisher,
		logger:    log.WithComponent("access-events"),
	}
}

// StaffChanged publishes a staff lifecycle event.
func (p *Publisher) StaffChanged(ctx context.Context, change string, ac *actor.Context, staff *domain.Profile) {
	eventType := ""
	switch change {
	case "created":
		eventType = messaging.EventStaffCreated
	case "updated":
		eventType = messaging.EventStaffUpdated
	case "deactivated":
		eventType = messaging.EventStaffDeactivated
	case "role_changed":
		eventType = messaging.EventStaffRoleChanged
	case "password_reset":
		eventType = messaging.EventStaffPasswordReset
	default:
		p.logger.Warn().Str("change", change).Msg("unknown staff change, event dropped")
		return
	}

	branchID := ""
	if staff.BranchID != nil {
		branchID = *staff.BranchID
	}

	p.publish(ctx, eventType, messaging.StaffEvent{
		ActorID:    ac.ID,
		BusinessID: staff.BusinessID,
		StaffID:    staff.ID,
		Role:       string(staff.Role),
		BranchID:   branchID,
	})
}

// TenantProvisioned publishes the bootstrap completion event.
func (p *Publisher) TenantProvisioned(ctx context.Context, bundle *domain.TenantBundle) {
	p.publish(ctx, messaging.EventTenantProvisioned, messaging.TenantProvisionedEvent{
		BusinessID:      bundle.Business.ID,
		BusinessName:    bundle.Business.Name,
		OwnerID:         bundle.OwnerProfile.ID,
		DefaultBranchID: bundle.DefaultBranch.ID,
	})
}

// OwnershipRepaired publishes a successful repair with before/after state.
func (p *Publisher) OwnershipRepaired(ctx context.Context, businessID, previousOwner, newOwner string, previousState domain.OwnershipState) {
	p.publish(ctx, messaging.EventOwnershipRepaired, messaging.OwnershipRepairedEvent{
		BusinessID:    businessID,
		PreviousOwner: previousOwner,
		NewOwner:      newOwner,
		PreviousState: string(previousState),
	})
}

// OwnershipUnrepairable flags a business that needs operator attention.
func (p *Publisher) OwnershipUnrepairable(ctx context.Context, businessID string, candidates int) {
	p.publish(ctx, messaging.EventOwnershipUnrepairable, map[string]interface{}{
		"business_id": businessID,
		"candidates":  candidates,
	})
}

// TenantMismatch records a denied cross-tenant access attempt.
func (p *Publisher) TenantMismatch(ctx context.Context, ac *actor.Context, targetBusinessID, operation string) {
	p.publish(ctx, messaging.EventTenantMismatchDenied, messaging.TenantMismatchEvent{
		ActorID:          ac.ID,
		ActorBusinessID:  ac.BusinessID,
		TargetBusinessID: targetBusinessID,
		Operation:        operation,
	})
}

// BranchChanged publishes branch lifecycle events.
func (p *Publisher) BranchChanged(ctx context.Context, created bool, branch *domain.Branch) {
	eventType := messaging.EventBranchCreated
	if !created {
		eventType = messaging.EventBranchDeactivated
	}
	p.publish(ctx, eventType, map[string]interface{}{
		"branch_id":   branch.ID,
		"business_id": branch.BusinessID,
		"name":        branch.Name,
	})
}

func (p *Publisher) publish(ctx context.Context, eventType string, data interface{}) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
