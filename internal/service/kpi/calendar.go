package kpi

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"mfg-kpi/internal/storage"
)

const (
	EventDueDate   = "due_date"
	EventETA       = "eta"
	EventReceived  = "received"
	EventCompleted = "completed"

	EventStatusPending   = "pending"
	EventStatusOverdue   = "overdue"
	EventStatusCompleted = "completed"
)

// CalendarEvent is one point on the unified calendar: an order due date or
// a procurement lifecycle timestamp.
type CalendarEvent struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Date          string `json:"date"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	OrderID       string `json:"order_id"`
	ProcurementID int64  `json:"procurement_id,omitempty"`

	date time.Time
}

// CalendarFilter bounds the event dates, inclusive on both ends. Empty
// bound = unbounded.
type CalendarFilter struct {
	From string
	To   string
}

// GetCalendarEvents projects order due dates and procurement timestamps
// into one chronologically sorted event list. Rows with malformed dates are
// skipped, not fatal — the skip count is kept on the service so operators
// can watch for data-quality regressions.
func (s *Service) GetCalendarEvents(ctx context.Context, filter CalendarFilter) ([]CalendarEvent, error) {
	const op = "service.kpi.GetCalendarEvents"

	orders, _, err := s.storage.ListOrders(ctx, storage.OrderFilter{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	procs, err := s.storage.GetProcurementsForOrders(ctx, orderIDs(orders))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	productByOrder := make(map[string]string, len(orders))

	// сравниваем по дням: заказ со сроком "сегодня" еще не просрочен
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	events := make([]CalendarEvent, 0, len(orders)+len(procs))

	for _, row := range orders {
		order := NormalizeOrder(row)
		productByOrder[order.OrderID] = order.ProductName

		if order.DueDate == "" {
			continue
		}
		due, ok := s.parseEventDate(order.DueDate, "due_date", order.OrderID)
		if !ok {
			continue
		}

		status := EventStatusPending
		if due.Before(today) {
			status = EventStatusOverdue
		}

		events = append(events, CalendarEvent{
			ID:      fmt.Sprintf("due-%s", order.OrderID),
			Title:   order.ProductName,
			Date:    order.DueDate,
			Type:    EventDueDate,
			Status:  status,
			OrderID: order.OrderID,
			date:    due,
		})
	}

	for _, p := range procs {
		title := fmt.Sprintf("%s: %s", p.Kind, productByOrder[p.OrderID])

		if p.ETA.Valid && p.ETA.String != "" {
			if eta, ok := s.parseEventDate(p.ETA.String, "eta", p.OrderID); ok {
				events = append(events, CalendarEvent{
					ID:            fmt.Sprintf("eta-%d", p.ID),
					Title:         title,
					Date:          p.ETA.String,
					Type:          EventETA,
					Status:        etaStatus(p),
					OrderID:       p.OrderID,
					ProcurementID: p.ID,
					date:          eta,
				})
			}
		}

		if p.ReceivedAt.Valid && p.ReceivedAt.String != "" {
			if received, ok := s.parseEventDate(p.ReceivedAt.String, "received_at", p.OrderID); ok {
				events = append(events, CalendarEvent{
					ID:            fmt.Sprintf("received-%d", p.ID),
					Title:         title,
					Date:          p.ReceivedAt.String,
					Type:          EventReceived,
					Status:        EventStatusCompleted,
					OrderID:       p.OrderID,
					ProcurementID: p.ID,
					date:          received,
				})
			}
		}

		if p.CompletedAt.Valid && p.CompletedAt.String != "" {
			if completed, ok := s.parseEventDate(p.CompletedAt.String, "completed_at", p.OrderID); ok {
				events = append(events, CalendarEvent{
					ID:            fmt.Sprintf("completed-%d", p.ID),
					Title:         title,
					Date:          p.CompletedAt.String,
					Type:          EventCompleted,
					Status:        EventStatusCompleted,
					OrderID:       p.OrderID,
					ProcurementID: p.ID,
					date:          completed,
				})
			}
		}
	}

	events = filterEventRange(events, filter)

	// Stable: ties keep source order (orders before procurements, row order
	// within each).
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].date.Before(events[j].date)
	})

	return events, nil
}

// SkippedCalendarDates reports how many rows have been dropped from the
// calendar because of unparseable dates since the service started.
func (s *Service) SkippedCalendarDates() uint64 {
	return s.skippedDates.Load()
}

var eventDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func (s *Service) parseEventDate(value, field, orderID string) (time.Time, bool) {
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	s.skippedDates.Add(1)
	slog.Warn("calendar: skipping row with malformed date",
		slog.String("field", field),
		slog.String("value", value),
		slog.String("order_id", orderID),
	)

	return time.Time{}, false
}

func etaStatus(p *storage.Procurement) string {
	done := p.Kind == storage.KindPurchase && p.Status.String == storage.ProcStatusReceived ||
		p.Kind == storage.KindManufacture && p.Status.String == storage.ProcStatusDone
	if done {
		return EventStatusCompleted
	}
	return EventStatusPending
}

func filterEventRange(events []CalendarEvent, filter CalendarFilter) []CalendarEvent {
	var from, to time.Time
	if filter.From != "" {
		if t, err := time.Parse("2006-01-02", filter.From); err == nil {
			from = t
		}
	}
	if filter.To != "" {
		if t, err := time.Parse("2006-01-02", filter.To); err == nil {
			// включительно до конца дня
			to = t.AddDate(0, 0, 1)
		}
	}

	if from.IsZero() && to.IsZero() {
		return events
	}

	kept := events[:0]
	for _, e := range events {
		if !from.IsZero() && e.date.Before(from) {
			continue
		}
		if !to.IsZero() && !e.date.Before(to) {
			continue
		}
		kept = append(kept, e)
	}

	return kept
}
