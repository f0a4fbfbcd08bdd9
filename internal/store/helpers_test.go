package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/erazemk/requisitions/internal/model"
)

// fixture holds the accounts most store tests need.
type fixture struct {
	owner    *model.User
	receiver *model.User
	other    *model.User
}

func newFixture(t *testing.T, database *sql.DB) fixture {
	t.Helper()
	ctx := context.Background()

	mk := func(name, role string) *model.User {
		u, err := CreateUser(ctx, database, name, "hash", role)
		if err != nil {
			t.Fatalf("CreateUser(%s): %v", name, err)
		}
		return u
	}

	return fixture{
		owner:    mk("olga", model.RoleEndUser),
		receiver: mk("rick", model.RoleReceiver),
		other:    mk("rita", model.RoleReceiver),
	}
}

func createRequestWithItems(t *testing.T, database *sql.DB, f fixture, name string, itemNames ...string) *model.Request {
	t.Helper()
	ctx := context.Background()

	req, err := CreateRequest(ctx, database, name, f.owner.ID, f.receiver.ID)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	for i, n := range itemNames {
		if _, err := CreateItem(ctx, database, req.ID, i, n, model.ItemTypeOther, 1); err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
	}

	loaded, err := LoadRequest(ctx, database, req.ID)
	if err != nil {
		t.Fatalf("LoadRequest: %v", err)
	}
	return loaded
}
