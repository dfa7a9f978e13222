package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"mfg-kpi/internal/service/kpi"
)

type DashboardComputer interface {
	ComputeDashboardKPI(ctx context.Context, filter kpi.Filter) (*kpi.DashboardKPI, error)
}

func GetDashboard(log *slog.Logger, computer DashboardComputer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.dashboard.GetDashboard"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		filter := kpi.Filter{
			From: r.URL.Query().Get("from"),
			To:   r.URL.Query().Get("to"),
		}

		for _, d := range []string{filter.From, filter.To} {
			if d == "" {
				continue
			}
			if _, err := time.Parse("2006-01-02", d); err != nil {
				http.Error(w, "invalid from/to date", http.StatusBadRequest)
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		dash, err := computer.ComputeDashboardKPI(ctx, filter)
		if err != nil {
			log.Error("Ошибка при расчете дашборда", slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, dash)
	}
}
