package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"mfg-kpi/internal/service/kpi"
)

type OrderKPIGetter interface {
	GetOrderKPI(ctx context.Context, orderID string) (*kpi.OrderKPI, error)
}

func GetOrderKPI(log *slog.Logger, getter OrderKPIGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.kpi.GetOrderKPI"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		orderID := chi.URLParam(r, "orderID")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		result, err := getter.GetOrderKPI(ctx, orderID)
		if err != nil {
			if errors.Is(err, kpi.ErrNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			log.Error("не удалось получить KPI заказа", slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, result)
	}
}
