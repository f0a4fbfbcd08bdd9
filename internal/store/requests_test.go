package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/erazemk/requisitions/internal/db"
	"github.com/erazemk/requisitions/internal/model"
)

func TestCreateAndLoadRequest(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := newFixture(t, database)

	req := createRequestWithItems(t, database, f, "Office supplies", "Pens", "Paper")

	if req.Status != model.RequestStatusPending {
		t.Errorf("expected pending, got %q", req.Status)
	}
	if req.Version != 1 {
		t.Errorf("expected version 1, got %d", req.Version)
	}
	if req.OwnerName != "olga" || req.ReceiverName != "rick" {
		t.Errorf("expected joined names olga/rick, got %q/%q", req.OwnerName, req.ReceiverName)
	}
	if len(req.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(req.Items))
	}

	missing, err := LoadRequest(ctx, database, "nope")
	if err != nil {
		t.Fatalf("LoadRequest: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing request")
	}
}

func TestListRequestsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := newFixture(t, database)

	first := createRequestWithItems(t, database, f, "First", "a")
	second := createRequestWithItems(t, database, f, "Second", "b", "c")

	otherOwner, _ := CreateUser(ctx, database, "oscar", "hash", model.RoleEndUser)
	CreateRequest(ctx, database, "Elsewhere", otherOwner.ID, f.other.ID)

	mine, err := ListRequests(ctx, database, RequestFilter{UserID: f.owner.ID})
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(mine))
	}
	if mine[0].ID != second.ID || mine[1].ID != first.ID {
		t.Error("expected newest request first")
	}
	if len(mine[0].Items) != 2 || mine[0].Items[0].Name != "b" || mine[0].Items[1].Name != "c" {
		t.Errorf("expected items b, c on newest request, got %+v", mine[0].Items)
	}
	if len(mine[1].Items) != 1 {
		t.Errorf("expected 1 item on oldest request, got %d", len(mine[1].Items))
	}

	assigned, err := ListRequests(ctx, database, RequestFilter{ReceiverID: f.other.ID})
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(assigned) != 1 || assigned[0].Name != "Elsewhere" {
		t.Fatalf("expected only 'Elsewhere' for other receiver, got %+v", assigned)
	}
	if assigned[0].Items == nil {
		t.Error("expected empty item slice, not nil")
	}

	none, err := ListRequests(ctx, database, RequestFilter{UserID: "nobody"})
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no requests, got %d", len(none))
	}
}

func TestSaveRequestVersioning(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := newFixture(t, database)

	req := createRequestWithItems(t, database, f, "Office", "Desk")
	stale := *req

	req.Status = model.RequestStatusApproved
	req.Name = "Office 2"
	if err := SaveRequest(ctx, database, req); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}
	if req.Version != 2 {
		t.Errorf("expected version 2, got %d", req.Version)
	}

	got, _ := GetRequest(ctx, database, req.ID)
	if got.Status != model.RequestStatusApproved || got.Name != "Office 2" {
		t.Errorf("expected saved fields, got %q/%q", got.Status, got.Name)
	}

	stale.Status = model.RequestStatusPending
	err := SaveRequest(ctx, database, &stale)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	got, _ = GetRequest(ctx, database, req.ID)
	if got.Status != model.RequestStatusApproved {
		t.Error("stale write must not change the request")
	}
}

func TestWithTxRollsBack(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := newFixture(t, database)

	boom := errors.New("boom")
	var created string
	err := WithTx(ctx, database, func(tx *sql.Tx) error {
		req, err := CreateRequest(ctx, tx, "Doomed", f.owner.ID, f.receiver.ID)
		if err != nil {
			return err
		}
		created = req.ID
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, err := GetRequest(ctx, database, created)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got != nil {
		t.Error("expected request to be rolled back")
	}
}
