package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/requisitions/internal/model"
)

// ErrConflict is returned by SaveRequest when the request was changed by
// another writer since it was read.
var ErrConflict = errors.New("request was modified concurrently")

const requestColumns = `r.id, r.name, r.user_id, r.receiver_id, r.status, r.version,
	r.created_at, r.updated_at, o.username, rc.username`

const requestJoins = `FROM requests r
	JOIN users o ON o.id = r.user_id
	JOIN users rc ON rc.id = r.receiver_id`

func scanRequest(s scanner) (*model.Request, error) {
	r := &model.Request{}
	err := s.Scan(&r.ID, &r.Name, &r.UserID, &r.ReceiverID, &r.Status, &r.Version,
		&r.CreatedAt, &r.UpdatedAt, &r.OwnerName, &r.ReceiverName)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateRequest creates a new pending request without items.
func CreateRequest(ctx context.Context, db DBTX, name, userID, receiverID string) (*model.Request, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO requests (id, name, user_id, receiver_id, status) VALUES (?, ?, ?, ?, ?)`,
		id, name, userID, receiverID, model.RequestStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	return GetRequest(ctx, db, id)
}

// GetRequest returns a request by ID, without its items.
func GetRequest(ctx context.Context, db DBTX, id string) (*model.Request, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` `+requestJoins+` WHERE r.id = ?`, id,
	)
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}
	return r, nil
}

// LoadRequest returns a request by ID with its items in creation order.
func LoadRequest(ctx context.Context, db DBTX, id string) (*model.Request, error) {
	r, err := GetRequest(ctx, db, id)
	if err != nil || r == nil {
		return r, err
	}

	r.Items, err = ListRequestItems(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// RequestFilter narrows ListRequests. Empty fields match everything.
type RequestFilter struct {
	UserID     string
	ReceiverID string
}

func (f RequestFilter) where() (string, []any) {
	clause := ` WHERE 1=1`
	var args []any
	if f.UserID != "" {
		clause += ` AND r.user_id = ?`
		args = append(args, f.UserID)
	}
	if f.ReceiverID != "" {
		clause += ` AND r.receiver_id = ?`
		args = append(args, f.ReceiverID)
	}
	return clause, args
}

// ListRequests returns matching requests with their items, newest first.
func ListRequests(ctx context.Context, db DBTX, filter RequestFilter) ([]model.Request, error) {
	where, args := filter.where()

	rows, err := db.QueryContext(ctx,
		`SELECT `+requestColumns+` `+requestJoins+where+` ORDER BY r.created_at DESC, r.rowid DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}

	requests := []model.Request{}
	index := make(map[string]int)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		r.Items = []model.Item{}
		index[r.ID] = len(requests)
		requests = append(requests, *r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	rows.Close()

	if len(requests) == 0 {
		return requests, nil
	}

	// Items for all matched requests in one pass.
	itemRows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items i JOIN requests r ON r.id = i.request_id`+where+
			` ORDER BY i.request_id, i.position`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing request items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item, err := scanItem(itemRows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		if i, ok := index[item.RequestID]; ok {
			requests[i].Items = append(requests[i].Items, *item)
		}
	}
	return requests, itemRows.Err()
}

// SaveRequest persists a request's name, receiver and status. The write only
// succeeds if the stored version still matches r.Version; otherwise it
// returns ErrConflict. On success r.Version is advanced.
func SaveRequest(ctx context.Context, db DBTX, r *model.Request) error {
	result, err := db.ExecContext(ctx,
		`UPDATE requests
		 SET name = ?, receiver_id = ?, status = ?, version = version + 1,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND version = ?`,
		r.Name, r.ReceiverID, r.Status, r.ID, r.Version,
	)
	if err != nil {
		return fmt.Errorf("saving request: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving request: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	r.Version++
	return nil
}
