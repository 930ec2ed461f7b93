package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type StatusHistoryEntry struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	OldStatus *string
	NewStatus string
	ChangedBy *uuid.UUID
	ChangedAt time.Time
}

func insertStatusHistory(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, oldStatus *string, newStatus string, actorID *uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO lead_status_history (id, lead_id, old_status, new_status, changed_by)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), leadID, oldStatus, newStatus, actorID)
	return err
}

// ListStatusHistory returns every status transition for a lead, oldest first.
func (r *Repository) ListStatusHistory(ctx context.Context, leadID uuid.UUID) ([]StatusHistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, old_status, new_status, changed_by, changed_at
		FROM lead_status_history
		WHERE lead_id = $1
		ORDER BY changed_at ASC, id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]StatusHistoryEntry, 0)
	for rows.Next() {
		var entry StatusHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.LeadID, &entry.OldStatus, &entry.NewStatus, &entry.ChangedBy, &entry.ChangedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return entries, nil
}

// GetPreviousStatus returns the status the lead held before its most recent
// transition. It returns an empty string when the lead has never changed status.
func (r *Repository) GetPreviousStatus(ctx context.Context, leadID uuid.UUID) (string, error) {
	var previous *string
	err := r.pool.QueryRow(ctx, `
		SELECT old_status
		FROM lead_status_history
		WHERE lead_id = $1 AND old_status IS NOT NULL
		ORDER BY changed_at DESC, id DESC
		LIMIT 1
	`, leadID).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if previous == nil {
		return "", nil
	}
	return *previous, nil
}
