package workflow

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/erazemk/requisitions/internal/model"
	"github.com/erazemk/requisitions/internal/notify"
	"github.com/erazemk/requisitions/internal/store"
)

// proposeReassignment hands item over to target. Only the request's own
// receiver can do this, and the target must be a different receiver.
func proposeReassignment(ctx context.Context, tx *sql.Tx, p Principal, req *model.Request, item model.Item, target, reason string) error {
	if p.Role != model.RoleReceiver || p.UserID != req.ReceiverID {
		return errorf(KindForbidden, "only the request's receiver can reassign items")
	}
	if target == req.ReceiverID {
		return errorf(KindInvalidTarget, "item %s: cannot reassign to the current receiver", item.ID)
	}

	u, err := store.GetUser(ctx, tx, target)
	if err != nil {
		return err
	}
	if u == nil || u.Role != model.RoleReceiver {
		return errorf(KindInvalidTarget, "item %s: invalid receiver for reassignment", item.ID)
	}

	open, err := store.GetOpenReassignment(ctx, tx, item.ID)
	if err != nil {
		return err
	}
	if open != nil {
		if _, err := store.CloseReassignment(ctx, tx, item.ID, model.DecisionWithdrawn); err != nil {
			return err
		}
		slog.Info("reassignment withdrawn", "item", item.ID, "was", open.ToUsername)
	}

	item.State = model.ReassignedTo(target)
	item.Notes = reason
	if err := store.UpdateItem(ctx, tx, &item); err != nil {
		return err
	}
	if _, err := store.OpenReassignment(ctx, tx, item.ID, req.ReceiverID, target, reason); err != nil {
		return err
	}

	slog.Info("item reassigned", "item", item.ID, "request", req.ID, "from", p.Username, "to", u.Username)
	return nil
}

// Decision is a receiver's answer to a reassignment.
type Decision string

// Decisions.
const (
	Accept Decision = "accept"
	Reject Decision = "reject"
)

// Resolution is the outcome of ResolveReassignment.
type Resolution struct {
	ItemID        string `json:"item_id"`
	NewStatus     string `json:"new_status"`
	RequestID     string `json:"request_id"`
	RequestStatus string `json:"request_status"`
}

// ResolveReassignment accepts or rejects an item reassigned to the caller.
// Accepting fulfills the item; rejecting sends it back to pending. Either
// way the reassignment is closed, so a repeated call is forbidden.
func (s *Service) ResolveReassignment(ctx context.Context, p Principal, itemID string, decision Decision) (*Resolution, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	var (
		state   model.ItemState
		outcome string
		evType  string
	)
	switch decision {
	case Accept:
		state, outcome, evType = model.Fulfilled, model.DecisionAccepted, notify.EventReassignmentAccepted
	case Reject:
		state, outcome, evType = model.Pending, model.DecisionRejected, notify.EventReassignmentRejected
	default:
		return nil, errorf(KindValidation, "unknown decision %q", decision)
	}

	item, err := store.GetItem(ctx, s.db, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errorf(KindNotFound, "item not found")
	}

	unlock := s.locks.Lock(item.RequestID)
	defer unlock()

	var res *Resolution
	err = store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		item, err := store.GetItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return errorf(KindNotFound, "item not found")
		}

		target, ok := item.State.Target()
		if !ok || target != p.UserID {
			return errorf(KindForbidden, "this item is not reassigned to you")
		}

		item.State = state
		item.Notes = ""
		if err := store.UpdateItem(ctx, tx, item); err != nil {
			return err
		}
		if _, err := store.CloseReassignment(ctx, tx, item.ID, outcome); err != nil {
			return err
		}

		req, err := store.LoadRequest(ctx, tx, item.RequestID)
		if err != nil {
			return err
		}
		if req == nil {
			return errorf(KindNotFound, "request not found")
		}
		req.Status = model.DeriveStatus(req.Items)
		if err := saveRequest(ctx, tx, req); err != nil {
			return err
		}

		res = &Resolution{
			ItemID:        item.ID,
			NewStatus:     state.Status(),
			RequestID:     req.ID,
			RequestStatus: req.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("reassignment resolved", "item", res.ItemID, "request", res.RequestID, "user", p.Username, "decision", outcome)

	e := notify.NewEvent(evType)
	e.RequestID = res.RequestID
	e.ItemID = res.ItemID
	e.Status = res.RequestStatus
	e.ActorID = p.UserID
	s.broadcast(e)

	return res, nil
}
