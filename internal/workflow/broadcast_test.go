package workflow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/erazemk/requisitions/internal/model"
	"github.com/erazemk/requisitions/internal/notify"
)

// failingNotifier rejects every event and counts the attempts.
type failingNotifier struct {
	calls atomic.Int32
}

func (f *failingNotifier) NotifyAll(context.Context, notify.Event) error {
	f.calls.Add(1)
	return errors.New("broker unavailable")
}

func TestBroadcastFailureDoesNotFailWrites(t *testing.T) {
	e := newEnv(t)
	failing := &failingNotifier{}
	e.svc = New(e.db, failing)
	ctx := context.Background()

	req := e.create(t, "Desk", "Lamp")
	req = e.setStatus(t, e.rick, req, 1, model.ItemStatusFulfilled)
	req = e.reassign(t, req, 0, e.rita, "no desks")

	res, err := e.svc.ResolveReassignment(ctx, e.rita, req.Items[0].ID, Accept)
	if err != nil {
		t.Fatalf("ResolveReassignment: %v", err)
	}
	if res.RequestStatus != model.RequestStatusApproved {
		t.Errorf("expected approved, got %q", res.RequestStatus)
	}

	e.svc.Wait()
	if n := failing.calls.Load(); n != 4 {
		t.Errorf("expected 4 broadcast attempts, got %d", n)
	}

	stored := e.load(t, req.ID)
	if stored.Status != model.RequestStatusApproved {
		t.Errorf("expected stored status approved, got %q", stored.Status)
	}
	for _, item := range stored.Items {
		if item.State.Status() != model.ItemStatusFulfilled {
			t.Errorf("item %s: expected fulfilled, got %q", item.Name, item.State.Status())
		}
	}
}
