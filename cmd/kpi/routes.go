package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	getcalendar "mfg-kpi/http-server/calendar/get"
	getdashboard "mfg-kpi/http-server/dashboard/get"
	generate_excel "mfg-kpi/http-server/generate-report/generate-excel"
	getkpi "mfg-kpi/http-server/kpi/get"
	"mfg-kpi/internal/config"
	"mfg-kpi/internal/middleware/auth"
	"mfg-kpi/internal/service/export"
	"mfg-kpi/internal/service/kpi"
)

func routes(cfg config.Config, log *slog.Logger, kpiService *kpi.Service, excelService *export.ExcelService) *chi.Mux {
	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:8081", "http://localhost:5173"}, // фронтенд
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// KPI по всем заказам (страницами) и по одному заказу
	router.Get("/api/orders/kpi", getkpi.ListOrderKPIs(log, kpiService))
	router.Get("/api/orders/order/{orderID}/kpi", getkpi.GetOrderKPI(log, kpiService))

	// агрегаты для дашборда
	router.Get("/api/dashboard", getdashboard.GetDashboard(log, kpiService))

	// единый календарь: сроки заказов + закупки/производство
	router.Get("/api/calendar", getcalendar.GetCalendarEvents(log, kpiService))

	// выгрузка KPI в excel, закрыта базовой авторизацией
	router.With(auth.BasicAuth(cfg.AdminLogin, cfg.AdminPass)).
		Get("/api/report/excel", generate_excel.GenerateReportExcel(log, excelService))

	// Статика, vue
	frontendDir := "./frontend-dist"
	if _, err := os.Stat(frontendDir); os.IsNotExist(err) {
		log.Warn("Папка фронтенда не найдена, отдаем только API", "path", frontendDir)
		return router
	}

	fileServer := http.StripPrefix("/", http.FileServer(http.Dir(frontendDir)))

	router.Handle("/assets/*", fileServer)
	router.Handle("/js/*", fileServer)
	router.Handle("/css/*", fileServer)
	router.Handle("/img/*", fileServer)

	// SPA fallback: любой другой путь → index.html
	router.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(frontendDir, r.URL.Path)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			http.ServeFile(w, r, path)
			return
		}
		http.ServeFile(w, r, filepath.Join(frontendDir, "index.html"))
	})

	return router
}
