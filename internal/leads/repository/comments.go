package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type LeadComment struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	AuthorID  uuid.UUID
	Body      string
	CreatedAt time.Time
}

type CreateLeadCommentParams struct {
	LeadID   uuid.UUID
	AuthorID uuid.UUID
	Body     string
}

func (r *Repository) CreateLeadComment(ctx context.Context, params CreateLeadCommentParams) (LeadComment, error) {
	var comment LeadComment
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_comments (id, lead_id, author_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, lead_id, author_id, body, created_at
	`, uuid.New(), params.LeadID, params.AuthorID, params.Body).Scan(
		&comment.ID,
		&comment.LeadID,
		&comment.AuthorID,
		&comment.Body,
		&comment.CreatedAt,
	)
	return comment, err
}

func (r *Repository) ListLeadComments(ctx context.Context, leadID uuid.UUID) ([]LeadComment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, author_id, body, created_at
		FROM lead_comments
		WHERE lead_id = $1
		ORDER BY created_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]LeadComment, 0)
	for rows.Next() {
		var comment LeadComment
		if err := rows.Scan(&comment.ID, &comment.LeadID, &comment.AuthorID, &comment.Body, &comment.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return comments, nil
}
