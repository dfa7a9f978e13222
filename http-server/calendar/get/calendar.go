package get

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"mfg-kpi/internal/service/kpi"
)

type ResponseCalendar struct {
	Events []kpi.CalendarEvent `json:"events"`
	Status string              `json:"status"`
	Error  string              `json:"error,omitempty"`
}

type CalendarGetter interface {
	GetCalendarEvents(ctx context.Context, filter kpi.CalendarFilter) ([]kpi.CalendarEvent, error)
}

func GetCalendarEvents(log *slog.Logger, getter CalendarGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.calendar.GetCalendarEvents"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		filter := kpi.CalendarFilter{
			From: r.URL.Query().Get("from"),
			To:   r.URL.Query().Get("to"),
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		events, err := getter.GetCalendarEvents(ctx, filter)
		if err != nil {
			log.Error("Ошибка при получении событий календаря", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, ResponseCalendar{Error: "не удалось получить события календаря"})
			return
		}

		if events == nil {
			events = []kpi.CalendarEvent{}
		}

		render.JSON(w, r, ResponseCalendar{
			Events: events,
			Status: strconv.Itoa(http.StatusOK),
		})
	}
}
