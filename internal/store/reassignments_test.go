package store

import (
	"context"
	"testing"

	"github.com/erazemk/requisitions/internal/db"
	"github.com/erazemk/requisitions/internal/model"
)

func reassign(t *testing.T, f fixture, item model.Item, reason string) model.Item {
	t.Helper()
	item.State = model.ReassignedTo(f.other.ID)
	item.Notes = reason
	return item
}

func TestOpenAndCloseReassignment(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := newFixture(t, database)

	req := createRequestWithItems(t, database, f, "Office", "Desk")
	item := reassign(t, f, req.Items[0], "not my area")
	if err := UpdateItem(ctx, database, &item); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	ra, err := OpenReassignment(ctx, database, item.ID, f.receiver.ID, f.other.ID, "not my area")
	if err != nil {
		t.Fatalf("OpenReassignment: %v", err)
	}
	if ra.RequestID != req.ID {
		t.Errorf("expected request %q, got %q", req.ID, ra.RequestID)
	}
	if ra.FromUsername != "rick" || ra.ToUsername != "rita" {
		t.Errorf("expected rick -> rita, got %q -> %q", ra.FromUsername, ra.ToUsername)
	}
	if ra.ResolvedAt != nil || ra.Decision != "" {
		t.Error("expected new reassignment to be open")
	}

	// Only one open reassignment per item.
	if _, err := OpenReassignment(ctx, database, item.ID, f.receiver.ID, f.other.ID, "again"); err == nil {
		t.Error("expected error for second open reassignment")
	}

	open, err := GetOpenReassignment(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetOpenReassignment: %v", err)
	}
	if open == nil || open.ID != ra.ID {
		t.Fatal("expected the open reassignment")
	}

	closed, err := CloseReassignment(ctx, database, item.ID, model.DecisionAccepted)
	if err != nil {
		t.Fatalf("CloseReassignment: %v", err)
	}
	if !closed {
		t.Error("expected an open reassignment to be closed")
	}

	closed, err = CloseReassignment(ctx, database, item.ID, model.DecisionRejected)
	if err != nil {
		t.Fatalf("CloseReassignment: %v", err)
	}
	if closed {
		t.Error("expected nothing left to close")
	}

	open, _ = GetOpenReassignment(ctx, database, item.ID)
	if open != nil {
		t.Error("expected no open reassignment after close")
	}

	history, err := ListItemReassignments(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("ListItemReassignments: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	if history[0].Decision != model.DecisionAccepted || history[0].ResolvedAt == nil {
		t.Errorf("expected accepted and resolved, got %q/%v", history[0].Decision, history[0].ResolvedAt)
	}
}

func TestListReassignedItems(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := newFixture(t, database)

	req := createRequestWithItems(t, database, f, "Office", "Desk", "Chair")
	item := reassign(t, f, req.Items[1], "rita has chairs")
	UpdateItem(ctx, database, &item)
	OpenReassignment(ctx, database, item.ID, f.receiver.ID, f.other.ID, "rita has chairs")

	items, err := ListReassignedItems(ctx, database, f.other.ID)
	if err != nil {
		t.Fatalf("ListReassignedItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 reassigned item, got %d", len(items))
	}

	got := items[0]
	if got.Item.ID != item.ID || got.Item.Name != "Chair" {
		t.Errorf("expected Chair, got %q", got.Item.Name)
	}
	if got.RequestID != req.ID || got.RequestName != "Office" {
		t.Errorf("unexpected request context %q/%q", got.RequestID, got.RequestName)
	}
	if got.OriginalReceiver != "rick" || got.Owner != "olga" {
		t.Errorf("expected rick/olga, got %q/%q", got.OriginalReceiver, got.Owner)
	}
	if got.Reason != "rita has chairs" {
		t.Errorf("unexpected reason %q", got.Reason)
	}
	if got.ReassignedAt.IsZero() {
		t.Error("expected reassigned_at to be set")
	}

	none, err := ListReassignedItems(ctx, database, f.receiver.ID)
	if err != nil {
		t.Fatalf("ListReassignedItems: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected nothing reassigned to rick, got %d", len(none))
	}
}
