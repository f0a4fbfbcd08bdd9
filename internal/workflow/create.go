package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/erazemk/requisitions/internal/model"
	"github.com/erazemk/requisitions/internal/notify"
	"github.com/erazemk/requisitions/internal/store"
)

// NewItem describes an item to add to a request.
type NewItem struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Quantity *int   `json:"quantity"`
}

// CreateInput is the payload for CreateRequest.
type CreateInput struct {
	Name       string    `json:"name"`
	ReceiverID string    `json:"receiver"`
	Items      []NewItem `json:"items"`
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errorf(KindValidation, "request name required")
	}
	if in.ReceiverID == "" {
		return errorf(KindValidation, "receiver required")
	}
	if len(in.Items) == 0 {
		return errorf(KindValidation, "items must be a non-empty list")
	}
	for i, item := range in.Items {
		if item.Quantity == nil {
			return errorf(KindValidation, "item %d: quantity required", i)
		}
		if err := model.ValidateItem(item.Name, item.Type, *item.Quantity); err != nil {
			return errorf(KindValidation, "item %d: %v", i, err)
		}
	}
	return nil
}

// lookupReceiver resolves a receiver for a request. Unknown ids are not found;
// users without the receiver role fail validation.
func lookupReceiver(ctx context.Context, db store.DBTX, id string) (*model.User, error) {
	u, err := store.GetUser(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errorf(KindNotFound, "receiver not found")
	}
	if u.Role != model.RoleReceiver {
		return nil, errorf(KindValidation, "user %s is not a receiver", u.Username)
	}
	return u, nil
}

// CreateRequest creates a pending request with pending items, in the order
// given. Only end users may create requests.
func (s *Service) CreateRequest(ctx context.Context, p Principal, in CreateInput) (*model.Request, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.Role != model.RoleEndUser {
		return nil, errorf(KindForbidden, "only end users can create requests")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var created *model.Request
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := lookupReceiver(ctx, tx, in.ReceiverID); err != nil {
			return err
		}

		req, err := store.CreateRequest(ctx, tx, strings.TrimSpace(in.Name), p.UserID, in.ReceiverID)
		if err != nil {
			return err
		}

		for i, item := range in.Items {
			if _, err := store.CreateItem(ctx, tx, req.ID, i, strings.TrimSpace(item.Name), item.Type, *item.Quantity); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}

		created, err = store.LoadRequest(ctx, tx, req.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("request created", "request", created.ID, "user", p.Username, "receiver", created.ReceiverName, "items", len(created.Items))

	e := notify.NewEvent(notify.EventRequestCreated)
	e.RequestID = created.ID
	e.Status = created.Status
	e.ActorID = p.UserID
	s.broadcast(e)

	return created, nil
}
