package workflow

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/erazemk/requisitions/internal/db"
	"github.com/erazemk/requisitions/internal/model"
	"github.com/erazemk/requisitions/internal/notify"
	"github.com/erazemk/requisitions/internal/store"
)

// recorder is a Notifier that keeps every event it receives.
type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) NotifyAll(_ context.Context, e notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type env struct {
	db  *sql.DB
	svc *Service
	rec *recorder

	olga  Principal // end user, owns requests
	oscar Principal // another end user
	rick  Principal // receiver of olga's requests
	rita  Principal // another receiver
	ron   Principal // yet another receiver
}

func newEnv(t *testing.T) *env {
	t.Helper()
	database := db.NewTestDB(t)
	rec := &recorder{}

	mk := func(name, role string) Principal {
		u, err := store.CreateUser(context.Background(), database, name, "hash", role)
		if err != nil {
			t.Fatalf("CreateUser(%s): %v", name, err)
		}
		return Principal{UserID: u.ID, Username: u.Username, Role: u.Role}
	}

	return &env{
		db:    database,
		svc:   New(database, rec),
		rec:   rec,
		olga:  mk("olga", model.RoleEndUser),
		oscar: mk("oscar", model.RoleEndUser),
		rick:  mk("rick", model.RoleReceiver),
		rita:  mk("rita", model.RoleReceiver),
		ron:   mk("ron", model.RoleReceiver),
	}
}

func qty(n int) *int          { return &n }
func str(s string) *string    { return &s }
func status(s string) *string { return &s }

// create makes a request from olga to rick with one item of quantity 1 per
// name.
func (e *env) create(t *testing.T, names ...string) *model.Request {
	t.Helper()
	in := CreateInput{Name: "Office", ReceiverID: e.rick.UserID}
	for _, n := range names {
		in.Items = append(in.Items, NewItem{Name: n, Type: model.ItemTypeOther, Quantity: qty(1)})
	}
	req, err := e.svc.CreateRequest(context.Background(), e.olga, in)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	return req
}

func (e *env) setStatus(t *testing.T, p Principal, req *model.Request, itemIdx int, s string) *model.Request {
	t.Helper()
	updated, err := e.svc.UpdateRequest(context.Background(), p, req.ID, Patch{
		Items: []ItemChange{{ID: req.Items[itemIdx].ID, Status: status(s)}},
	})
	if err != nil {
		t.Fatalf("UpdateRequest(%s): %v", s, err)
	}
	return updated
}

func (e *env) reassign(t *testing.T, req *model.Request, itemIdx int, to Principal, reason string) *model.Request {
	t.Helper()
	updated, err := e.svc.UpdateRequest(context.Background(), e.rick, req.ID, Patch{
		Items: []ItemChange{{
			ID:           req.Items[itemIdx].ID,
			Status:       status(model.ItemStatusReassigned),
			ReassignedTo: to.UserID,
			Reason:       reason,
		}},
	})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	return updated
}

func (e *env) load(t *testing.T, id string) *model.Request {
	t.Helper()
	req, err := store.LoadRequest(context.Background(), e.db, id)
	if err != nil {
		t.Fatalf("LoadRequest: %v", err)
	}
	return req
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %q (%v)", kind, got, err)
	}
}
