package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/requisitions/internal/model"
)

const itemColumns = `i.id, i.request_id, i.position, i.name, i.type, i.quantity,
	i.status, i.reassigned_to, i.notes, i.created_at, i.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*model.Item, error) {
	item := &model.Item{}
	var status string
	var target sql.NullString
	err := s.Scan(&item.ID, &item.RequestID, &item.Position, &item.Name, &item.Type, &item.Quantity,
		&status, &target, &item.Notes, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.State, err = model.StateFromColumns(status, target.String)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", item.ID, err)
	}
	return item, nil
}

// CreateItem adds a pending item to a request at the given position.
func CreateItem(ctx context.Context, db DBTX, requestID string, position int, name, itemType string, quantity int) (*model.Item, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO items (id, request_id, position, name, type, quantity, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, requestID, position, name, itemType, quantity, model.ItemStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db DBTX, id string) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items i WHERE i.id = ?`, id,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListRequestItems returns a request's items in creation order.
func ListRequestItems(ctx context.Context, db DBTX, requestID string) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items i WHERE i.request_id = ? ORDER BY i.position`, requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// NextItemPosition returns the position for an item appended to the request.
func NextItemPosition(ctx context.Context, db DBTX, requestID string) (int, error) {
	var next int
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM items WHERE request_id = ?`, requestID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("getting next item position: %w", err)
	}
	return next, nil
}

// UpdateItem writes an item's editable fields and state in a single statement.
func UpdateItem(ctx context.Context, db DBTX, item *model.Item) error {
	var target sql.NullString
	if id, ok := item.State.Target(); ok {
		target = sql.NullString{String: id, Valid: true}
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items
		 SET name = ?, type = ?, quantity = ?, status = ?, reassigned_to = ?, notes = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		item.Name, item.Type, item.Quantity, item.State.Status(), target, item.Notes, item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("updating item: item %s not found", item.ID)
	}
	return nil
}
