package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Item types.
const (
	ItemTypeStationary  = "stationary"
	ItemTypeElectronics = "electronics"
	ItemTypeFurniture   = "furniture"
	ItemTypeOther       = "other"
)

// ItemTypes lists the item types in display order.
var ItemTypes = []string{ItemTypeStationary, ItemTypeElectronics, ItemTypeFurniture, ItemTypeOther}

// ValidItemType reports whether t is a known item type.
func ValidItemType(t string) bool {
	for _, known := range ItemTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Item statuses.
const (
	ItemStatusPending    = "pending"
	ItemStatusFulfilled  = "fulfilled"
	ItemStatusOutOfStock = "out_of_stock"
	ItemStatusReassigned = "reassigned"
)

// ItemState is the fulfillment state of an item. The reassignment target is
// only carried by the reassigned variant, so a reassigned item always has a
// target and no other state can hold one. The zero value is pending.
type ItemState struct {
	status string
	target string
}

// Item states without a target.
var (
	Pending    = ItemState{status: ItemStatusPending}
	Fulfilled  = ItemState{status: ItemStatusFulfilled}
	OutOfStock = ItemState{status: ItemStatusOutOfStock}
)

// ReassignedTo returns the reassigned state pointing at the given receiver.
func ReassignedTo(receiverID string) ItemState {
	return ItemState{status: ItemStatusReassigned, target: receiverID}
}

// State parses a status that needs no target. Reassigned is rejected because
// it cannot exist without a receiver; use ReassignedTo instead.
func State(status string) (ItemState, error) {
	switch status {
	case ItemStatusPending:
		return Pending, nil
	case ItemStatusFulfilled:
		return Fulfilled, nil
	case ItemStatusOutOfStock:
		return OutOfStock, nil
	case ItemStatusReassigned:
		return ItemState{}, fmt.Errorf("status %q requires a target receiver", status)
	}
	return ItemState{}, fmt.Errorf("unknown item status %q", status)
}

// StateFromColumns rebuilds a state from its stored status and target,
// rejecting combinations that break the reassignment invariant.
func StateFromColumns(status, target string) (ItemState, error) {
	if status == ItemStatusReassigned {
		if target == "" {
			return ItemState{}, fmt.Errorf("reassigned item has no target receiver")
		}
		return ReassignedTo(target), nil
	}
	if target != "" {
		return ItemState{}, fmt.Errorf("item with status %q has a reassignment target", status)
	}
	return State(status)
}

// Status returns the status name.
func (s ItemState) Status() string {
	if s.status == "" {
		return ItemStatusPending
	}
	return s.status
}

// Target returns the receiver an item is reassigned to, if any.
func (s ItemState) Target() (string, bool) {
	return s.target, s.status == ItemStatusReassigned
}

// IsFulfilled reports whether the item counts as fulfilled for aggregation.
func (s ItemState) IsFulfilled() bool {
	return s.status == ItemStatusFulfilled
}

// Item is a single line of a request.
type Item struct {
	ID        string
	RequestID string
	Position  int
	Name      string
	Type      string
	Quantity  int
	State     ItemState
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type itemJSON struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Quantity     int       `json:"quantity"`
	Status       string    `json:"status"`
	ReassignedTo string    `json:"reassigned_to,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MarshalJSON flattens the item state into status and reassigned_to.
func (i Item) MarshalJSON() ([]byte, error) {
	target, _ := i.State.Target()
	return json.Marshal(itemJSON{
		ID:           i.ID,
		RequestID:    i.RequestID,
		Name:         i.Name,
		Type:         i.Type,
		Quantity:     i.Quantity,
		Status:       i.State.Status(),
		ReassignedTo: target,
		Notes:        i.Notes,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (i *Item) UnmarshalJSON(data []byte) error {
	var raw itemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	state, err := StateFromColumns(raw.Status, raw.ReassignedTo)
	if err != nil {
		return err
	}
	*i = Item{
		ID:        raw.ID,
		RequestID: raw.RequestID,
		Name:      raw.Name,
		Type:      raw.Type,
		Quantity:  raw.Quantity,
		State:     state,
		Notes:     raw.Notes,
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
	}
	return nil
}

// ValidateItem checks the user-supplied fields of an item.
func ValidateItem(name, itemType string, quantity int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name required")
	}
	if !ValidItemType(itemType) {
		return fmt.Errorf("invalid type %q", itemType)
	}
	if quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}
	return nil
}
