// Package workflow implements request creation, item updates and the
// reassignment handshake between receivers. Every mutation recomputes the
// request status from its items inside the same transaction and then
// broadcasts a change event.
package workflow

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/requisitions/internal/model"
	"github.com/erazemk/requisitions/internal/notify"
)

// BroadcastTimeout bounds a single broadcast attempt.
const BroadcastTimeout = 5 * time.Second

// Principal is the authenticated actor behind an operation.
type Principal struct {
	UserID   string
	Username string
	Role     string
}

func (p Principal) validate() error {
	if p.UserID == "" || !model.ValidRole(p.Role) {
		return errorf(KindUnauthorized, "not authenticated")
	}
	return nil
}

// Service runs request workflows against the database.
type Service struct {
	db       *sql.DB
	notifier notify.Notifier
	locks    *keyedMutex
	wg       sync.WaitGroup
}

// New creates a workflow service. A nil notifier discards events.
func New(db *sql.DB, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Service{db: db, notifier: notifier, locks: newKeyedMutex()}
}

// Wait blocks until all in-flight broadcasts have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// broadcast sends e in the background. Failures are logged and dropped; the
// triggering operation has already committed.
func (s *Service) broadcast(e notify.Event) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), BroadcastTimeout)
		defer cancel()

		if err := s.notifier.NotifyAll(ctx, e); err != nil {
			slog.Error("broadcast failed", "event", e.Type, "request", e.RequestID, "error", err)
		}
	}()
}

// authorizeRequest checks that p may act on req: end users on requests they
// own, receivers on requests addressed to them.
func authorizeRequest(p Principal, req *model.Request) error {
	switch p.Role {
	case model.RoleEndUser:
		if req.UserID == p.UserID {
			return nil
		}
		return errorf(KindForbidden, "you can only update your own requests")
	case model.RoleReceiver:
		if req.ReceiverID == p.UserID {
			return nil
		}
		return errorf(KindForbidden, "you can only update requests assigned to you")
	}
	return errorf(KindForbidden, "unknown role %q", p.Role)
}
