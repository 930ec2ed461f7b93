// Package comments handles free-text comments on leads.
package comments

import (
	"context"
	"errors"

	"loancrm_backend/internal/leads/repository"
	"loancrm_backend/internal/leads/transport"
	"loancrm_backend/platform/apperr"
	"loancrm_backend/platform/sanitize"

	"github.com/google/uuid"
)

const maxCommentLength = 4000

// Repository defines the data access interface needed by the comments service.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	repository.CommentStore
}

// Service handles lead comment operations.
type Service struct {
	repo Repository
}

// New creates a new comments service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Add stores a comment. Text is sanitized first; a comment that is empty after
// sanitizing is rejected.
func (s *Service) Add(ctx context.Context, leadID uuid.UUID, authorID uuid.UUID, req transport.CreateLeadCommentRequest) (transport.LeadCommentResponse, error) {
	body := sanitize.Truncate(sanitize.Text(req.Body), maxCommentLength)
	if body == "" {
		return transport.LeadCommentResponse{}, apperr.Validation("please enter a comment")
	}

	if err := s.ensureLead(ctx, leadID); err != nil {
		return transport.LeadCommentResponse{}, err
	}

	comment, err := s.repo.CreateLeadComment(ctx, repository.CreateLeadCommentParams{
		LeadID:   leadID,
		AuthorID: authorID,
		Body:     body,
	})
	if err != nil {
		return transport.LeadCommentResponse{}, err
	}

	return toCommentResponse(comment), nil
}

// List returns the comments of a lead, newest first.
func (s *Service) List(ctx context.Context, leadID uuid.UUID) (transport.LeadCommentsResponse, error) {
	if err := s.ensureLead(ctx, leadID); err != nil {
		return transport.LeadCommentsResponse{}, err
	}

	list, err := s.repo.ListLeadComments(ctx, leadID)
	if err != nil {
		return transport.LeadCommentsResponse{}, err
	}

	items := make([]transport.LeadCommentResponse, len(list))
	for i, comment := range list {
		items[i] = toCommentResponse(comment)
	}
	return transport.LeadCommentsResponse{Items: items}, nil
}

func (s *Service) ensureLead(ctx context.Context, leadID uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		return err
	}
	return nil
}

func toCommentResponse(comment repository.LeadComment) transport.LeadCommentResponse {
	return transport.LeadCommentResponse{
		ID:        comment.ID,
		LeadID:    comment.LeadID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}
