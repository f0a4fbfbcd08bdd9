package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/requisitions/internal/model"
)

const reassignmentColumns = `ra.id, ra.item_id, i.request_id, ra.from_user_id, ra.to_user_id, ra.reason,
	ra.reassigned_at, ra.resolved_at, ra.decision, fu.username, tu.username`

const reassignmentJoins = `FROM reassignments ra
	JOIN items i ON i.id = ra.item_id
	JOIN users fu ON fu.id = ra.from_user_id
	JOIN users tu ON tu.id = ra.to_user_id`

func scanReassignment(s scanner) (*model.Reassignment, error) {
	ra := &model.Reassignment{}
	var decision sql.NullString
	err := s.Scan(&ra.ID, &ra.ItemID, &ra.RequestID, &ra.FromUserID, &ra.ToUserID, &ra.Reason,
		&ra.ReassignedAt, &ra.ResolvedAt, &decision, &ra.FromUsername, &ra.ToUsername)
	if err != nil {
		return nil, err
	}
	ra.Decision = decision.String
	return ra, nil
}

// OpenReassignment records that an item was handed from one receiver to
// another. The item must not already have an open reassignment.
func OpenReassignment(ctx context.Context, db DBTX, itemID, fromUserID, toUserID, reason string) (*model.Reassignment, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO reassignments (id, item_id, from_user_id, to_user_id, reason) VALUES (?, ?, ?, ?, ?)`,
		id, itemID, fromUserID, toUserID, reason,
	)
	if err != nil {
		return nil, fmt.Errorf("opening reassignment: %w", err)
	}

	row := db.QueryRowContext(ctx,
		`SELECT `+reassignmentColumns+` `+reassignmentJoins+` WHERE ra.id = ?`, id,
	)
	ra, err := scanReassignment(row)
	if err != nil {
		return nil, fmt.Errorf("getting reassignment: %w", err)
	}
	return ra, nil
}

// CloseReassignment resolves the item's open reassignment with the given
// decision. It reports whether there was an open reassignment to close.
func CloseReassignment(ctx context.Context, db DBTX, itemID, decision string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE reassignments SET resolved_at = CURRENT_TIMESTAMP, decision = ?
		 WHERE item_id = ? AND resolved_at IS NULL`,
		decision, itemID,
	)
	if err != nil {
		return false, fmt.Errorf("closing reassignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("closing reassignment: %w", err)
	}
	return n > 0, nil
}

// GetOpenReassignment returns the item's unresolved reassignment, if any.
func GetOpenReassignment(ctx context.Context, db DBTX, itemID string) (*model.Reassignment, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+reassignmentColumns+` `+reassignmentJoins+`
		 WHERE ra.item_id = ? AND ra.resolved_at IS NULL`, itemID,
	)
	ra, err := scanReassignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting open reassignment: %w", err)
	}
	return ra, nil
}

// ListItemReassignments returns an item's reassignment history, oldest first.
func ListItemReassignments(ctx context.Context, db DBTX, itemID string) ([]model.Reassignment, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+reassignmentColumns+` `+reassignmentJoins+`
		 WHERE ra.item_id = ? ORDER BY ra.reassigned_at, ra.rowid`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reassignments: %w", err)
	}
	defer rows.Close()

	history := []model.Reassignment{}
	for rows.Next() {
		ra, err := scanReassignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reassignment: %w", err)
		}
		history = append(history, *ra)
	}
	return history, rows.Err()
}

// ListReassignedItems returns the items currently reassigned to a receiver,
// newest reassignment first, with the request context needed to act on them.
func ListReassignedItems(ctx context.Context, db DBTX, receiverID string) ([]model.ReassignedItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+`, r.name, rc.username, o.username, ra.reason, ra.reassigned_at
		 FROM items i
		 JOIN requests r ON r.id = i.request_id
		 JOIN users o ON o.id = r.user_id
		 JOIN users rc ON rc.id = r.receiver_id
		 LEFT JOIN reassignments ra ON ra.item_id = i.id AND ra.resolved_at IS NULL
		 WHERE i.status = ? AND i.reassigned_to = ?
		 ORDER BY COALESCE(ra.reassigned_at, i.updated_at) DESC, i.rowid DESC`,
		model.ItemStatusReassigned, receiverID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reassigned items: %w", err)
	}
	defer rows.Close()

	result := []model.ReassignedItem{}
	for rows.Next() {
		var ri model.ReassignedItem
		var status string
		var target, reason sql.NullString
		var reassignedAt *time.Time
		item := &ri.Item
		err := rows.Scan(&item.ID, &item.RequestID, &item.Position, &item.Name, &item.Type, &item.Quantity,
			&status, &target, &item.Notes, &item.CreatedAt, &item.UpdatedAt,
			&ri.RequestName, &ri.OriginalReceiver, &ri.Owner, &reason, &reassignedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning reassigned item: %w", err)
		}
		item.State, err = model.StateFromColumns(status, target.String)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", item.ID, err)
		}
		ri.RequestID = item.RequestID
		ri.Reason = reason.String
		ri.ReassignedAt = item.UpdatedAt
		if reassignedAt != nil {
			ri.ReassignedAt = *reassignedAt
		}
		result = append(result, ri)
	}
	return result, rows.Err()
}
