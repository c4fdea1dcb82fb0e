package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Staff events
	EventStaffCreated       = "access.staff.created"
	EventStaffUpdated       = "access.staff.updated"
	EventStaffDeactivated   = "access.staff.deactivated"
	EventStaffRoleChanged   = "access.staff.role.changed"
	EventStaffPasswordReset = "access.staff.password.reset"

	// Tenant lifecycle events
	EventTenantProvisioned     = "access.tenant.provisioned"
	EventOwnershipRepaired     = "access.ownership.repaired"
	EventOwnershipUnrepairable = "access.ownership.unrepairable"

	// Security events
	EventTenantMismatchDenied = "access.denied.tenant_mismatch"

	// Branch events
	EventBranchCreated     = "access.branch.created"
	EventBranchDeactivated = "access.branch.deactivated"

	// Inventory events
	EventStockAdjusted = "inventory.stock.adjusted"
)

// Exchange names
const (
	ExchangeAccessEvents    = "access.events"
	ExchangeInventoryEvents = "inventory.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// StaffEvent is published on staff create/update/deactivate/role changes
type StaffEvent struct {
	ActorID    string `json:"actor_id"`
	BusinessID string `json:"business_id"`
	StaffID    string `json:"staff_id"`
	Role       string `json:"role,omitempty"`
	BranchID   string `json:"branch_id,omitempty"`
}

// TenantProvisionedEvent is published when a new tenant completes bootstrap
type TenantProvisionedEvent struct {
	BusinessID      string `json:"business_id"`
	BusinessName    string `json:"business_name"`
	OwnerID         string `json:"owner_id"`
	DefaultBranchID string `json:"default_branch_id"`
}

// OwnershipRepairedEvent records an ownership repair with before/after state
type OwnershipRepairedEvent struct {
	BusinessID    string `json:"business_id"`
	PreviousOwner string `json:"previous_owner,omitempty"`
	NewOwner      string `json:"new_owner"`
	PreviousState string `json:"previous_state"`
}

// TenantMismatchEvent records a denied cross-tenant access attempt
type TenantMismatchEvent struct {
	ActorID          string `json:"actor_id"`
	ActorBusinessID  string `json:"actor_business_id"`
	TargetBusinessID string `json:"target_business_id"`
	Operation        string `json:"operation"`
}

// StockAdjustedEvent is published when an item quantity changes
type StockAdjustedEvent struct {
	ItemID     string `json:"item_id"`
	BusinessID string `json:"business_id"`
	BranchID   string `json:"branch_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Delta      int    `json:"delta"`
	Quantity   int    `json:"quantity"`
	Reason     string `json:"reason,omitempty"`
}
