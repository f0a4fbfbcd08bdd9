package model

import "time"

// Request is an end user's ask for a set of items, routed to one receiver.
type Request struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UserID     string    `json:"user_id"`
	ReceiverID string    `json:"receiver_id"`
	Status     string    `json:"status"`
	Items      []Item    `json:"items"`
	Version    int64     `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	OwnerName    string `json:"owner_name,omitempty"`
	ReceiverName string `json:"receiver_name,omitempty"`
}

// Request statuses. Approved means every item has been fulfilled.
const (
	RequestStatusPending            = "pending"
	RequestStatusApproved           = "approved"
	RequestStatusPartiallyFulfilled = "partially_fulfilled"
)

// DeriveStatus computes a request's status from its items. Out of stock and
// reassigned items count as not yet fulfilled.
func DeriveStatus(items []Item) string {
	fulfilled := 0
	for _, item := range items {
		if item.State.IsFulfilled() {
			fulfilled++
		}
	}

	switch {
	case len(items) == 0 || fulfilled == 0:
		return RequestStatusPending
	case fulfilled == len(items):
		return RequestStatusApproved
	default:
		return RequestStatusPartiallyFulfilled
	}
}
