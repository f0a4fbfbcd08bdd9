package model

import "time"

// Reassignment records a receiver handing one item off to another receiver.
// A reassignment is open until it is resolved; an item has at most one open
// reassignment, and only while its status is reassigned.
type Reassignment struct {
	ID           string     `json:"id"`
	ItemID       string     `json:"item_id"`
	RequestID    string     `json:"request_id"`
	FromUserID   string     `json:"from_user_id"`
	ToUserID     string     `json:"to_user_id"`
	Reason       string     `json:"reason,omitempty"`
	ReassignedAt time.Time  `json:"reassigned_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	Decision     string     `json:"decision,omitempty"`

	// Joined fields (not always populated).
	FromUsername string `json:"from_username,omitempty"`
	ToUsername   string `json:"to_username,omitempty"`
}

// Reassignment decisions. Withdrawn means the item's status was changed
// directly while the reassignment was still open.
const (
	DecisionAccepted  = "accepted"
	DecisionRejected  = "rejected"
	DecisionWithdrawn = "withdrawn"
)

// ReassignedItem is an item waiting on a receiver's decision, with enough
// context about its request to act on it.
type ReassignedItem struct {
	Item             Item      `json:"item"`
	RequestID        string    `json:"request_id"`
	RequestName      string    `json:"request_name"`
	OriginalReceiver string    `json:"original_receiver"`
	Owner            string    `json:"owner"`
	Reason           string    `json:"reason,omitempty"`
	ReassignedAt     time.Time `json:"reassigned_at"`
}
