package workflow

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/erazemk/requisitions/internal/model"
	"github.com/erazemk/requisitions/internal/notify"
	"github.com/erazemk/requisitions/internal/store"
)

// ItemChange describes one item in an update. With an ID it changes that
// existing item; nil fields are left as they are. Without an ID it adds a new
// item, and Name, Type and Quantity are required.
//
// Setting Status to reassigned with ReassignedTo proposes handing the item
// to another receiver, with Reason stored as the item's notes.
type ItemChange struct {
	ID           string  `json:"id,omitempty"`
	Name         *string `json:"name,omitempty"`
	Type         *string `json:"type,omitempty"`
	Quantity     *int    `json:"quantity,omitempty"`
	Status       *string `json:"status,omitempty"`
	ReassignedTo string  `json:"reassigned_to,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}

// Patch is a partial update of a request. Item changes are applied in order.
type Patch struct {
	Name       *string      `json:"name,omitempty"`
	ReceiverID *string      `json:"receiver,omitempty"`
	Items      []ItemChange `json:"items,omitempty"`
}

// UpdateRequest applies a patch to a request and recomputes its status. The
// whole patch is applied in one transaction: if any change fails, nothing is
// written.
func (s *Service) UpdateRequest(ctx context.Context, p Principal, requestID string, patch Patch) (*model.Request, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, errorf(KindValidation, "request name must not be empty")
	}
	if patch.ReceiverID != nil && *patch.ReceiverID == "" {
		return nil, errorf(KindValidation, "receiver must not be empty")
	}

	unlock := s.locks.Lock(requestID)
	defer unlock()

	var updated *model.Request
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		req, err := store.LoadRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return errorf(KindNotFound, "request not found")
		}
		if err := authorizeRequest(p, req); err != nil {
			return err
		}

		owner := p.Role == model.RoleEndUser && p.UserID == req.UserID
		if (patch.Name != nil || patch.ReceiverID != nil) && !owner {
			return errorf(KindForbidden, "only the owner can rename or reroute a request")
		}

		byID := make(map[string]model.Item, len(req.Items))
		for _, item := range req.Items {
			byID[item.ID] = item
		}

		for i, change := range patch.Items {
			if change.ID == "" {
				if !owner {
					return errorf(KindForbidden, "only the owner can add items")
				}
				if err := addItem(ctx, tx, req.ID, i, change); err != nil {
					return err
				}
				continue
			}

			item, ok := byID[change.ID]
			if !ok {
				return errorf(KindNotFound, "item %s is not part of this request", change.ID)
			}
			if err := applyItemChange(ctx, tx, p, req, item, change); err != nil {
				return err
			}

			// Later changes to the same item must see this one.
			fresh, err := store.GetItem(ctx, tx, change.ID)
			if err != nil {
				return err
			}
			if fresh == nil {
				return errorf(KindNotFound, "item %s not found", change.ID)
			}
			byID[change.ID] = *fresh
		}

		req.Items, err = store.ListRequestItems(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		req.Status = model.DeriveStatus(req.Items)

		if patch.Name != nil {
			req.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.ReceiverID != nil {
			if _, err := lookupReceiver(ctx, tx, *patch.ReceiverID); err != nil {
				return err
			}
			for _, item := range req.Items {
				if target, ok := item.State.Target(); ok && target == *patch.ReceiverID {
					return errorf(KindInvalidTarget, "item %s is reassigned to this receiver; resolve it before rerouting", item.ID)
				}
			}
			req.ReceiverID = *patch.ReceiverID
		}

		if err := saveRequest(ctx, tx, req); err != nil {
			return err
		}

		updated, err = store.LoadRequest(ctx, tx, req.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("request updated", "request", updated.ID, "user", p.Username, "status", updated.Status, "changes", len(patch.Items))

	e := notify.NewEvent(notify.EventRequestUpdated)
	e.RequestID = updated.ID
	e.Status = updated.Status
	e.ActorID = p.UserID
	s.broadcast(e)

	return updated, nil
}

// saveRequest persists the request, reporting a lost version race as a
// conflict.
func saveRequest(ctx context.Context, tx *sql.Tx, req *model.Request) error {
	err := store.SaveRequest(ctx, tx, req)
	if errors.Is(err, store.ErrConflict) {
		return errorf(KindConflict, "request was modified concurrently, reload and retry")
	}
	return err
}

func addItem(ctx context.Context, tx *sql.Tx, requestID string, index int, change ItemChange) error {
	if change.Name == nil || change.Type == nil || change.Quantity == nil {
		return errorf(KindValidation, "item %d: new items need name, type and quantity", index)
	}
	name := strings.TrimSpace(*change.Name)
	if err := model.ValidateItem(name, *change.Type, *change.Quantity); err != nil {
		return errorf(KindValidation, "item %d: %v", index, err)
	}

	state := model.Pending
	if change.Status != nil {
		var err error
		if state, err = model.State(*change.Status); err != nil {
			return errorf(KindValidation, "item %d: %v", index, err)
		}
	}

	position, err := store.NextItemPosition(ctx, tx, requestID)
	if err != nil {
		return err
	}
	item, err := store.CreateItem(ctx, tx, requestID, position, name, *change.Type, *change.Quantity)
	if err != nil {
		return err
	}
	if state != model.Pending {
		item.State = state
		return store.UpdateItem(ctx, tx, item)
	}
	return nil
}

// applyItemChange updates one existing item of req. A reassigned status is
// routed to proposeReassignment; any other status change on a reassigned
// item withdraws the open reassignment.
func applyItemChange(ctx context.Context, tx *sql.Tx, p Principal, req *model.Request, item model.Item, change ItemChange) error {
	updated := item
	if change.Name != nil {
		updated.Name = strings.TrimSpace(*change.Name)
	}
	if change.Type != nil {
		updated.Type = *change.Type
	}
	if change.Quantity != nil {
		updated.Quantity = *change.Quantity
	}
	if err := model.ValidateItem(updated.Name, updated.Type, updated.Quantity); err != nil {
		return errorf(KindValidation, "item %s: %v", item.ID, err)
	}

	if change.Status == nil {
		if change.ReassignedTo != "" {
			return errorf(KindValidation, "item %s: reassigned_to requires status %q", item.ID, model.ItemStatusReassigned)
		}
		return store.UpdateItem(ctx, tx, &updated)
	}

	if *change.Status == model.ItemStatusReassigned {
		if change.ReassignedTo == "" {
			return errorf(KindValidation, "item %s: reassignment needs a target receiver", item.ID)
		}
		return proposeReassignment(ctx, tx, p, req, updated, change.ReassignedTo, change.Reason)
	}
	if change.ReassignedTo != "" {
		return errorf(KindValidation, "item %s: reassigned_to requires status %q", item.ID, model.ItemStatusReassigned)
	}

	state, err := model.State(*change.Status)
	if err != nil {
		return errorf(KindValidation, "item %s: %v", item.ID, err)
	}
	if _, reassigned := item.State.Target(); reassigned {
		if _, err := store.CloseReassignment(ctx, tx, item.ID, model.DecisionWithdrawn); err != nil {
			return err
		}
		updated.Notes = ""
	}
	updated.State = state
	return store.UpdateItem(ctx, tx, &updated)
}
