package workflow

import (
	"context"

	"github.com/erazemk/requisitions/internal/model"
	"github.com/erazemk/requisitions/internal/store"
)

// ListRequests returns the requests visible to p, newest first: end users
// see the requests they own, receivers the ones addressed to them.
func (s *Service) ListRequests(ctx context.Context, p Principal) ([]model.Request, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	var filter store.RequestFilter
	if p.Role == model.RoleReceiver {
		filter.ReceiverID = p.UserID
	} else {
		filter.UserID = p.UserID
	}
	return store.ListRequests(ctx, s.db, filter)
}

// ListReassignedToMe returns the items waiting on p's decision. End users
// never receive reassignments and always get an empty list.
func (s *Service) ListReassignedToMe(ctx context.Context, p Principal) ([]model.ReassignedItem, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.Role != model.RoleReceiver {
		return []model.ReassignedItem{}, nil
	}
	return store.ListReassignedItems(ctx, s.db, p.UserID)
}

// ItemHistory returns an item's reassignment history. It is visible to the
// request's owner and receiver and to any receiver the item was handed to.
func (s *Service) ItemHistory(ctx context.Context, p Principal, itemID string) ([]model.Reassignment, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	item, err := store.GetItem(ctx, s.db, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errorf(KindNotFound, "item not found")
	}

	req, err := store.GetRequest(ctx, s.db, item.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errorf(KindNotFound, "request not found")
	}

	history, err := store.ListItemReassignments(ctx, s.db, itemID)
	if err != nil {
		return nil, err
	}

	if p.UserID == req.UserID || p.UserID == req.ReceiverID {
		return history, nil
	}
	for _, ra := range history {
		if ra.ToUserID == p.UserID {
			return history, nil
		}
	}
	return nil, errorf(KindForbidden, "you cannot view this item")
}
