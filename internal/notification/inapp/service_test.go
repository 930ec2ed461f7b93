package inapp

import (
	"context"
	"io"
	"testing"
	"time"

	"loancrm_backend/internal/notification/sse"
	"loancrm_backend/platform/logger"

	"github.com/google/uuid"
)

type memoryStore struct {
	created    []CreateParams
	lastLimit  int
	lastOffset int
}

func (m *memoryStore) Create(_ context.Context, p CreateParams) (Notification, error) {
	m.created = append(m.created, p)
	return Notification{ID: uuid.New(), UserID: p.UserID, Title: p.Title, Content: p.Content, Category: p.Category, CreatedAt: time.Now()}, nil
}

func (m *memoryStore) List(_ context.Context, _ uuid.UUID, limit, offset int) ([]Notification, int, error) {
	m.lastLimit, m.lastOffset = limit, offset
	return nil, 0, nil
}

func (m *memoryStore) CountUnread(context.Context, uuid.UUID) (int, error) { return 0, nil }

func (m *memoryStore) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (m *memoryStore) MarkAllRead(context.Context, uuid.UUID) error { return nil }

func TestSendDefaultsCategoryAndPersists(t *testing.T) {
	store := &memoryStore{}
	log := logger.NewWithWriter("test", io.Discard)
	svc := NewService(store, sse.New(log), log)

	notif, err := svc.Send(context.Background(), SendParams{
		UserID:       uuid.New(),
		Title:        "Lead converted",
		Content:      "Opportunity O1 created",
		ResourceType: "lead",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if notif.Category != CategoryInfo {
		t.Fatalf("expected info category, got %q", notif.Category)
	}
	if len(store.created) != 1 || store.created[0].ResourceType == nil || *store.created[0].ResourceType != "lead" {
		t.Fatalf("unexpected stored params %+v", store.created)
	}
}

func TestListClampsPaging(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, nil, logger.NewWithWriter("test", io.Discard))

	if _, _, err := svc.List(context.Background(), uuid.New(), 3, 500); err != nil {
		t.Fatalf("List: %v", err)
	}
	if store.lastLimit != 100 || store.lastOffset != 200 {
		t.Fatalf("expected limit 100 offset 200, got %d/%d", store.lastLimit, store.lastOffset)
	}
}
