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

type ResponseOrderKPIs struct {
	Items  []kpi.OrderKPI `json:"items"`
	Total  int            `json:"total"`
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
}

type OrderKPILister interface {
	ListOrderKPIs(ctx context.Context, filter kpi.Filter) ([]kpi.OrderKPI, int, error)
}

func parseFilter(r *http.Request) (kpi.Filter, bool) {
	filter := kpi.Filter{
		From:  r.URL.Query().Get("from"),
		To:    r.URL.Query().Get("to"),
		Query: r.URL.Query().Get("q"),
	}

	for _, d := range []string{filter.From, filter.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return kpi.Filter{}, false
		}
	}

	return filter, true
}

func ListOrderKPIs(log *slog.Logger, lister OrderKPILister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.kpi.ListOrderKPIs"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		filter, ok := parseFilter(r)
		if !ok {
			http.Error(w, "invalid from/to date", http.StatusBadRequest)
			return
		}

		if pageStr := r.URL.Query().Get("page"); pageStr != "" {
			page, err := strconv.Atoi(pageStr)
			if err != nil {
				http.Error(w, "invalid page", http.StatusBadRequest)
				return
			}
			filter.Page = page
		}
		if sizeStr := r.URL.Query().Get("page_size"); sizeStr != "" {
			size, err := strconv.Atoi(sizeStr)
			if err != nil {
				http.Error(w, "invalid page_size", http.StatusBadRequest)
				return
			}
			filter.PageSize = size
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		items, total, err := lister.ListOrderKPIs(ctx, filter)
		if err != nil {
			log.Error("Ошибка при получении KPI заказов", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, ResponseOrderKPIs{Error: "не удалось получить KPI заказов"})
			return
		}

		if items == nil {
			items = []kpi.OrderKPI{}
		}

		render.JSON(w, r, ResponseOrderKPIs{
			Items:  items,
			Total:  total,
			Status: strconv.Itoa(http.StatusOK),
		})
	}
}
