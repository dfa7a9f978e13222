package kpi

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"mfg-kpi/internal/storage"
)

// ErrNotFound — запрошенный заказ отсутствует.
var ErrNotFound = errors.New("order not found")

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Storage interface {
	GetOrder(ctx context.Context, orderID string) (*storage.Order, error)
	ListOrders(ctx context.Context, filter storage.OrderFilter) ([]*storage.Order, int, error)
	GetProcurements(ctx context.Context, orderID string) ([]*storage.Procurement, error)
	GetWorkerTimeLogs(ctx context.Context, orderID string) ([]*storage.WorkerTimeLog, error)
	GetProcurementsForOrders(ctx context.Context, orderIDs []string) ([]*storage.Procurement, error)
	GetWorkerTimeLogsForOrders(ctx context.Context, orderIDs []string) ([]*storage.WorkerTimeLog, error)
}

// Filter is the list/dashboard/export filter: due-date range, free-text
// match on the product name, 1-indexed page. PageSize is capped at 100.
type Filter struct {
	From     string
	To       string
	Query    string
	Page     int
	PageSize int
}

// DashboardKPI is one aggregate over every order matching the filter.
type DashboardKPI struct {
	TotalSales                decimal.Decimal `json:"total_sales"`
	TotalGrossProfit          decimal.Decimal `json:"total_gross_profit"`
	TotalStdHours             decimal.Decimal `json:"total_std_hours"`
	TotalActualHours          decimal.Decimal `json:"total_actual_hours"`
	AvgVariancePct            decimal.Decimal `json:"avg_variance_pct"`
	PurchaseCompletionRate    decimal.Decimal `json:"purchase_completion_rate"`
	ManufactureCompletionRate decimal.Decimal `json:"manufacture_completion_rate"`
}

// Service derives order KPIs from freshly read rows on every call. It holds
// no mutable state between requests besides the skipped-date counter, so
// concurrent requests need no locking here.
type Service struct {
	storage  Storage
	wageRate decimal.Decimal

	now func() time.Time

	skippedDates atomic.Uint64
}

func NewService(storage Storage, wageRate decimal.Decimal) *Service {
	return &Service{
		storage:  storage,
		wageRate: wageRate,
		now:      time.Now,
	}
}

// GetOrderKPI computes the metrics of a single order. Returns ErrNotFound
// when the order row is absent; procurement and work-log rows of a deleted
// order are unreachable through this path by construction.
func (s *Service) GetOrderKPI(ctx context.Context, orderID string) (*OrderKPI, error) {
	const op = "service.kpi.GetOrderKPI"

	var (
		order *storage.Order
		procs []*storage.Procurement
		logs  []*storage.WorkerTimeLog
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		order, err = s.storage.GetOrder(gCtx, orderID)
		if err != nil {
			return fmt.Errorf("order: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		procs, err = s.storage.GetProcurements(gCtx, orderID)
		if err != nil {
			return fmt.Errorf("procurements: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		logs, err = s.storage.GetWorkerTimeLogs(gCtx, orderID)
		if err != nil {
			return fmt.Errorf("worker time logs: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: id=%s: %w", op, orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: id=%s: %w", op, orderID, err)
	}

	kpi := ComputeOrderKPI(NormalizeOrder(order), procs, logs, s.wageRate)

	return &kpi, nil
}

// ListOrderKPIs returns one page of KPIs ordered by due date ascending plus
// the total count matching the filter (for the pagination UI). Any read
// failure aborts the whole batch — silently dropping an order would
// under-count the totals downstream.
func (s *Service) ListOrderKPIs(ctx context.Context, filter Filter) ([]OrderKPI, int, error) {
	const op = "service.kpi.ListOrderKPIs"

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	orders, total, err := s.storage.ListOrders(ctx, storage.OrderFilter{
		From:   filter.From,
		To:     filter.To,
		Query:  filter.Query,
		Limit:  size,
		Offset: (page - 1) * size,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	items, err := s.computeKPIs(ctx, orders)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return items, total, nil
}

// ExportKPIRows is the list contract without pagination, for bulk export.
func (s *Service) ExportKPIRows(ctx context.Context, filter Filter) ([]OrderKPI, error) {
	const op = "service.kpi.ExportKPIRows"

	orders, _, err := s.storage.ListOrders(ctx, storage.OrderFilter{
		From:  filter.From,
		To:    filter.To,
		Query: filter.Query,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items, err := s.computeKPIs(ctx, orders)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

// ComputeDashboardKPI aggregates every order matching the filter, without
// pagination. avg_variance_pct is the mean over orders whose variance is
// known and non-zero; the completion rates are scoped to procurements of
// the matching orders and are 0 on an empty population.
func (s *Service) ComputeDashboardKPI(ctx context.Context, filter Filter) (*DashboardKPI, error) {
	const op = "service.kpi.ComputeDashboardKPI"

	orders, _, err := s.storage.ListOrders(ctx, storage.OrderFilter{
		From:  filter.From,
		To:    filter.To,
		Query: filter.Query,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	procsByOrder, logsByOrder, err := s.fetchJoined(ctx, orderIDs(orders))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dash := &DashboardKPI{}

	var varianceSum decimal.Decimal
	var varianceCount int64
	var purchaseTotal, purchaseReceived, manufactureTotal, manufactureDone int64

	for _, row := range orders {
		order := NormalizeOrder(row)
		kpi := ComputeOrderKPI(order, procsByOrder[order.OrderID], logsByOrder[order.OrderID], s.wageRate)

		dash.TotalSales = dash.TotalSales.Add(kpi.Sales)
		dash.TotalGrossProfit = dash.TotalGrossProfit.Add(kpi.GrossProfit)
		dash.TotalStdHours = dash.TotalStdHours.Add(order.Qty.Mul(order.StdTimePerUnit))
		dash.TotalActualHours = dash.TotalActualHours.Add(kpi.TotalActualHours())

		if kpi.varianceKnown && !kpi.VariancePct.IsZero() {
			varianceSum = varianceSum.Add(kpi.VariancePct)
			varianceCount++
		}

		for _, p := range procsByOrder[order.OrderID] {
			switch p.Kind {
			case storage.KindPurchase:
				purchaseTotal++
				if p.Status.String == storage.ProcStatusReceived {
					purchaseReceived++
				}
			case storage.KindManufacture:
				manufactureTotal++
				if p.Status.String == storage.ProcStatusDone {
					manufactureDone++
				}
			}
		}
	}

	if varianceCount > 0 {
		dash.AvgVariancePct = varianceSum.Div(decimal.NewFromInt(varianceCount))
	}
	dash.PurchaseCompletionRate = completionRate(purchaseReceived, purchaseTotal)
	dash.ManufactureCompletionRate = completionRate(manufactureDone, manufactureTotal)

	return dash, nil
}

// computeKPIs maps order rows to KPIs, reading the joined procurement and
// work-log rows in two batched queries instead of per order.
func (s *Service) computeKPIs(ctx context.Context, orders []*storage.Order) ([]OrderKPI, error) {
	procsByOrder, logsByOrder, err := s.fetchJoined(ctx, orderIDs(orders))
	if err != nil {
		return nil, err
	}

	items := make([]OrderKPI, 0, len(orders))
	for _, row := range orders {
		order := NormalizeOrder(row)
		items = append(items, ComputeOrderKPI(order, procsByOrder[order.OrderID], logsByOrder[order.OrderID], s.wageRate))
	}

	return items, nil
}

func (s *Service) fetchJoined(ctx context.Context, ids []string) (map[string][]*storage.Procurement, map[string][]*storage.WorkerTimeLog, error) {
	var (
		procs []*storage.Procurement
		logs  []*storage.WorkerTimeLog
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		procs, err = s.storage.GetProcurementsForOrders(gCtx, ids)
		if err != nil {
			return fmt.Errorf("procurements: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		logs, err = s.storage.GetWorkerTimeLogsForOrders(gCtx, ids)
		if err != nil {
			return fmt.Errorf("worker time logs: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	procsByOrder := make(map[string][]*storage.Procurement, len(ids))
	for _, p := range procs {
		procsByOrder[p.OrderID] = append(procsByOrder[p.OrderID], p)
	}

	logsByOrder := make(map[string][]*storage.WorkerTimeLog, len(ids))
	for _, l := range logs {
		logsByOrder[l.OrderID] = append(logsByOrder[l.OrderID], l)
	}

	return procsByOrder, logsByOrder, nil
}

func orderIDs(orders []*storage.Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.OrderID)
	}
	return ids
}

func completionRate(done, total int64) decimal.Decimal {
	if total == 0 {
		return decimal.Decimal{}
	}
	return hundred.Mul(decimal.NewFromInt(done)).Div(decimal.NewFromInt(total))
}
