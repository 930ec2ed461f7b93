package service

import (
	"fmt"
	"math"
	"time"

	"loancrm_backend/internal/leads/repository"
	"loancrm_backend/internal/leads/transport"
)

// BuildStatusTimeline turns an ascending transition log into per-status
// durations. The last entry is still open and is measured up to now.
func BuildStatusTimeline(entries []repository.StatusHistoryEntry, now time.Time) []transport.StatusDuration {
	items := make([]transport.StatusDuration, 0, len(entries))
	for i, entry := range entries {
		end := now
		var exited *time.Time
		if i+1 < len(entries) {
			next := entries[i+1].ChangedAt
			exited = &next
			end = next
		}

		elapsed := end.Sub(entry.ChangedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		totalMinutes := int(elapsed / time.Minute)

		items = append(items, transport.StatusDuration{
			Status:            entry.NewStatus,
			EnteredAt:         entry.ChangedAt,
			ExitedAt:          exited,
			DurationDays:      math.Round(elapsed.Hours()/24*10) / 10,
			DurationHours:     totalMinutes / 60,
			DurationMinutes:   totalMinutes,
			FormattedDuration: FormatDuration(totalMinutes),
		})
	}
	return items
}

// FormatDuration renders whole minutes as "Xh Ym".
func FormatDuration(totalMinutes int) string {
	if totalMinutes < 0 {
		totalMinutes = 0
	}
	return fmt.Sprintf("%dh %dm", totalMinutes/60, totalMinutes%60)
}
