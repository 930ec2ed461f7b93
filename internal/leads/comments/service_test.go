package comments

import (
	"context"
	"testing"

	"loancrm_backend/internal/leads/repository"
	"loancrm_backend/internal/leads/transport"
	"loancrm_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeRepo struct {
	leads    map[uuid.UUID]repository.Lead
	comments []repository.LeadComment
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeRepo) CreateLeadComment(_ context.Context, params repository.CreateLeadCommentParams) (repository.LeadComment, error) {
	comment := repository.LeadComment{ID: uuid.New(), LeadID: params.LeadID, AuthorID: params.AuthorID, Body: params.Body}
	f.comments = append(f.comments, comment)
	return comment, nil
}

func (f *fakeRepo) ListLeadComments(_ context.Context, leadID uuid.UUID) ([]repository.LeadComment, error) {
	out := make([]repository.LeadComment, 0)
	for _, c := range f.comments {
		if c.LeadID == leadID {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestAddRejectsBlankComment(t *testing.T) {
	leadID := uuid.New()
	repo := &fakeRepo{leads: map[uuid.UUID]repository.Lead{leadID: {ID: leadID}}}
	svc := New(repo)

	_, err := svc.Add(context.Background(), leadID, uuid.New(), transport.CreateLeadCommentRequest{Body: "  <p> </p> "})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.comments) != 0 {
		t.Fatalf("expected nothing stored, got %d comments", len(repo.comments))
	}
}

func TestAddSanitizesAndStores(t *testing.T) {
	leadID := uuid.New()
	repo := &fakeRepo{leads: map[uuid.UUID]repository.Lead{leadID: {ID: leadID}}}
	svc := New(repo)

	created, err := svc.Add(context.Background(), leadID, uuid.New(), transport.CreateLeadCommentRequest{Body: "<b>Client</b> asked for a callback"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Body != "Client asked for a callback" {
		t.Fatalf("expected sanitized body, got %q", created.Body)
	}

	list, err := svc.List(context.Background(), leadID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(list.Items))
	}
}

func TestAddUnknownLead(t *testing.T) {
	svc := New(&fakeRepo{leads: map[uuid.UUID]repository.Lead{}})

	_, err := svc.Add(context.Background(), uuid.New(), uuid.New(), transport.CreateLeadCommentRequest{Body: "hello"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
