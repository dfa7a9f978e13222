package kpi

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mfg-kpi/internal/storage"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetOrder(ctx context.Context, orderID string) (*storage.Order, error) {
	args := m.Called(ctx, orderID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	order, ok := args.Get(0).(*storage.Order)
	if !ok {
		return nil, fmt.Errorf("expected *storage.Order, got %T", args.Get(0))
	}

	return order, args.Error(1)
}

func (m *MockStorage) ListOrders(ctx context.Context, filter storage.OrderFilter) ([]*storage.Order, int, error) {
	args := m.Called(ctx, filter)

	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}

	orders, ok := args.Get(0).([]*storage.Order)
	if !ok {
		return nil, 0, fmt.Errorf("expected []*storage.Order, got %T", args.Get(0))
	}

	return orders, args.Int(1), args.Error(2)
}

func (m *MockStorage) GetProcurements(ctx context.Context, orderID string) ([]*storage.Procurement, error) {
	args := m.Called(ctx, orderID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	procs, ok := args.Get(0).([]*storage.Procurement)
	if !ok {
		return nil, fmt.Errorf("expected []*storage.Procurement, got %T", args.Get(0))
	}

	return procs, args.Error(1)
}

func (m *MockStorage) GetWorkerTimeLogs(ctx context.Context, orderID string) ([]*storage.WorkerTimeLog, error) {
	args := m.Called(ctx, orderID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	logs, ok := args.Get(0).([]*storage.WorkerTimeLog)
	if !ok {
		return nil, fmt.Errorf("expected []*storage.WorkerTimeLog, got %T", args.Get(0))
	}

	return logs, args.Error(1)
}

func (m *MockStorage) GetProcurementsForOrders(ctx context.Context, orderIDs []string) ([]*storage.Procurement, error) {
	args := m.Called(ctx, orderIDs)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	procs, ok := args.Get(0).([]*storage.Procurement)
	if !ok {
		return nil, fmt.Errorf("expected []*storage.Procurement, got %T", args.Get(0))
	}

	return procs, args.Error(1)
}

func (m *MockStorage) GetWorkerTimeLogsForOrders(ctx context.Context, orderIDs []string) ([]*storage.WorkerTimeLog, error) {
	args := m.Called(ctx, orderIDs)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	logs, ok := args.Get(0).([]*storage.WorkerTimeLog)
	if !ok {
		return nil, fmt.Errorf("expected []*storage.WorkerTimeLog, got %T", args.Get(0))
	}

	return logs, args.Error(1)
}

func newOrderRow(id string, qty, sales, estimate, stdTime float64, dueDate string) *storage.Order {
	row := &storage.Order{
		OrderID:               id,
		ProductName:           "Изделие " + id,
		Qty:                   nd(qty),
		Sales:                 nd(sales),
		EstimatedMaterialCost: nd(estimate),
		Status:                ns("in-progress"),
	}
	if stdTime > 0 {
		row.StdTimePerUnit = nd(stdTime)
	}
	if dueDate != "" {
		row.DueDate = ns(dueDate)
	}
	return row
}

func TestGetOrderKPI_Success(t *testing.T) {
	mockStorage := new(MockStorage)

	mockStorage.On("GetOrder", mock.Anything, "O1").
		Return(newOrderRow("O1", 10, 100000, 500, 2, "2025-03-01"), nil)
	mockStorage.On("GetProcurements", mock.Anything, "O1").
		Return([]*storage.Procurement{
			newPurchase("O1", 10, 50, storage.ProcStatusReceived),
			newManufacture("O1", 10, 1.5, storage.ProcStatusDone),
		}, nil)
	mockStorage.On("GetWorkerTimeLogs", mock.Anything, "O1").
		Return([]*storage.WorkerTimeLog{newWorkerLog("O1", 10, 0.3)}, nil)

	service := NewService(mockStorage, testWageRate)

	kpi, err := service.GetOrderKPI(context.Background(), "O1")

	require.NoError(t, err)
	assert.Equal(t, "O1", kpi.OrderID)
	assert.Equal(t, "5500", kpi.MaterialCost.String())
	assert.Equal(t, "36000", kpi.LaborCost.String())
	assert.Equal(t, "58500", kpi.GrossProfit.String())
	assert.Equal(t, "-10", kpi.VariancePct.String())

	mockStorage.AssertExpectations(t)
}

func TestGetOrderKPI_NotFound(t *testing.T) {
	mockStorage := new(MockStorage)

	mockStorage.On("GetOrder", mock.Anything, "missing").
		Return(nil, fmt.Errorf("storage.orders.GetOrder.sql: id=missing: %w", storage.ErrOrderNotFound))
	mockStorage.On("GetProcurements", mock.Anything, "missing").Return([]*storage.Procurement{}, nil).Maybe()
	mockStorage.On("GetWorkerTimeLogs", mock.Anything, "missing").Return([]*storage.WorkerTimeLog{}, nil).Maybe()

	service := NewService(mockStorage, testWageRate)

	kpi, err := service.GetOrderKPI(context.Background(), "missing")

	assert.Nil(t, kpi)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetOrderKPI_StorageFailurePropagates(t *testing.T) {
	mockStorage := new(MockStorage)

	dbErr := errors.New("connection refused")
	mockStorage.On("GetOrder", mock.Anything, "O1").Return(newOrderRow("O1", 1, 0, 0, 0, ""), nil).Maybe()
	mockStorage.On("GetProcurements", mock.Anything, "O1").Return(nil, dbErr)
	mockStorage.On("GetWorkerTimeLogs", mock.Anything, "O1").Return([]*storage.WorkerTimeLog{}, nil).Maybe()

	service := NewService(mockStorage, testWageRate)

	kpi, err := service.GetOrderKPI(context.Background(), "O1")

	assert.Nil(t, kpi)
	assert.True(t, errors.Is(err, dbErr))
	assert.False(t, errors.Is(err, ErrNotFound))
}

// page_size просят 500 — в хранилище уходит не больше 100.
func TestListOrderKPIs_PageSizeCapped(t *testing.T) {
	mockStorage := new(MockStorage)

	mockStorage.On("ListOrders", mock.Anything, storage.OrderFilter{Limit: 100, Offset: 0}).
		Return([]*storage.Order{}, 340, nil)
	mockStorage.On("GetProcurementsForOrders", mock.Anything, []string{}).Return(nil, nil)
	mockStorage.On("GetWorkerTimeLogsForOrders", mock.Anything, []string{}).Return(nil, nil)

	service := NewService(mockStorage, testWageRate)

	items, total, err := service.ListOrderKPIs(context.Background(), Filter{Page: 1, PageSize: 500})

	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 340, total)

	mockStorage.AssertExpectations(t)
}

func TestListOrderKPIs_DefaultsAndOffset(t *testing.T) {
	mockStorage := new(MockStorage)

	// страница 3 по 20 → offset 40
	mockStorage.On("ListOrders", mock.Anything, storage.OrderFilter{Query: "окно", Limit: 20, Offset: 40}).
		Return([]*storage.Order{newOrderRow("O9", 1, 100, 10, 0, "")}, 41, nil)
	mockStorage.On("GetProcurementsForOrders", mock.Anything, []string{"O9"}).Return(nil, nil)
	mockStorage.On("GetWorkerTimeLogsForOrders", mock.Anything, []string{"O9"}).Return(nil, nil)

	service := NewService(mockStorage, testWageRate)

	items, total, err := service.ListOrderKPIs(context.Background(), Filter{Query: "окно", Page: 3})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "O9", items[0].OrderID)
	assert.Equal(t, 41, total)

	mockStorage.AssertExpectations(t)
}

func TestListOrderKPIs_BatchAbortsOnJoinFailure(t *testing.T) {
	mockStorage := new(MockStorage)

	dbErr := errors.New("lost connection during query")
	mockStorage.On("ListOrders", mock.Anything, mock.Anything).
		Return([]*storage.Order{newOrderRow("O1", 1, 0, 0, 0, "")}, 1, nil)
	mockStorage.On("GetProcurementsForOrders", mock.Anything, []string{"O1"}).Return(nil, dbErr)
	mockStorage.On("GetWorkerTimeLogsForOrders", mock.Anything, []string{"O1"}).Return(nil, nil).Maybe()

	service := NewService(mockStorage, testWageRate)

	items, _, err := service.ListOrderKPIs(context.Background(), Filter{})

	// ни одного частичного результата
	assert.Nil(t, items)
	assert.True(t, errors.Is(err, dbErr))
}

func TestExportKPIRows_NoPagination(t *testing.T) {
	mockStorage := new(MockStorage)

	// Limit 0 — хранилище отдает весь отфильтрованный набор
	mockStorage.On("ListOrders", mock.Anything, storage.OrderFilter{From: "2025-01-01", To: "2025-12-31"}).
		Return([]*storage.Order{
			newOrderRow("O1", 1, 100, 10, 0, "2025-02-01"),
			newOrderRow("O2", 2, 200, 10, 0, "2025-03-01"),
		}, 2, nil)
	mockStorage.On("GetProcurementsForOrders", mock.Anything, []string{"O1", "O2"}).Return(nil, nil)
	mockStorage.On("GetWorkerTimeLogsForOrders", mock.Anything, []string{"O1", "O2"}).Return(nil, nil)

	service := NewService(mockStorage, testWageRate)

	rows, err := service.ExportKPIRows(context.Background(), Filter{From: "2025-01-01", To: "2025-12-31"})

	require.NoError(t, err)
	assert.Len(t, rows, 2)

	mockStorage.AssertExpectations(t)
}

func TestComputeDashboardKPI_Aggregates(t *testing.T) {
	mockStorage := new(MockStorage)

	// O1 — норматив не задан (variance 0, в среднее не попадает),
	// O2 — сценарий с отклонением -10%.
	orders := []*storage.Order{
		newOrderRow("O1", 5, 50000, 100, 0, "2025-02-01"),
		newOrderRow("O2", 10, 100000, 500, 2, "2025-03-01"),
	}
	procs := []*storage.Procurement{
		newPurchase("O1", 5, 20, storage.ProcStatusPlanned),
		newPurchase("O2", 10, 50, storage.ProcStatusReceived),
		newManufacture("O2", 10, 1.5, storage.ProcStatusDone),
	}
	logs := []*storage.WorkerTimeLog{
		newWorkerLog("O2", 10, 0.3),
	}

	mockStorage.On("ListOrders", mock.Anything, storage.OrderFilter{}).Return(orders, 2, nil)
	mockStorage.On("GetProcurementsForOrders", mock.Anything, []string{"O1", "O2"}).Return(procs, nil)
	mockStorage.On("GetWorkerTimeLogsForOrders", mock.Anything, []string{"O1", "O2"}).Return(logs, nil)

	service := NewService(mockStorage, testWageRate)

	dash, err := service.ComputeDashboardKPI(context.Background(), Filter{})

	require.NoError(t, err)
	assert.Equal(t, "150000", dash.TotalSales.String())
	// O1: 50000 - 5*100 = 49500; O2: 58500
	assert.Equal(t, "108000", dash.TotalGrossProfit.String())
	// только O2 имеет норматив: 10*2
	assert.Equal(t, "20", dash.TotalStdHours.String())
	// O2: 10 * 1.8
	assert.Equal(t, "18", dash.TotalActualHours.String())
	// O1 без норматива исключен из среднего
	assert.Equal(t, "-10", dash.AvgVariancePct.String())
	// закупки: получена 1 из 2; производство: 1 из 1
	assert.Equal(t, "50", dash.PurchaseCompletionRate.String())
	assert.Equal(t, "100", dash.ManufactureCompletionRate.String())

	mockStorage.AssertExpectations(t)
}

func TestComputeDashboardKPI_EmptyPopulations(t *testing.T) {
	mockStorage := new(MockStorage)

	mockStorage.On("ListOrders", mock.Anything, mock.Anything).Return([]*storage.Order{}, 0, nil)
	mockStorage.On("GetProcurementsForOrders", mock.Anything, []string{}).Return(nil, nil)
	mockStorage.On("GetWorkerTimeLogsForOrders", mock.Anything, []string{}).Return(nil, nil)

	service := NewService(mockStorage, testWageRate)

	dash, err := service.ComputeDashboardKPI(context.Background(), Filter{})

	require.NoError(t, err)
	assert.True(t, dash.PurchaseCompletionRate.IsZero())
	assert.True(t, dash.ManufactureCompletionRate.IsZero())
	assert.True(t, dash.AvgVariancePct.IsZero())
	assert.True(t, dash.TotalSales.IsZero())
}

// Подлинно нулевое отклонение тоже не попадает в среднее — поведение
// исходной системы сохранено.
func TestComputeDashboardKPI_GenuineZeroVarianceExcluded(t *testing.T) {
	mockStorage := new(MockStorage)

	orders := []*storage.Order{
		newOrderRow("O1", 2, 0, 0, 1, ""), // actual == std → variance 0
		newOrderRow("O2", 2, 0, 0, 1, ""), // actual 1.5 → variance +50
	}
	procs := []*storage.Procurement{
		newManufacture("O1", 2, 1, storage.ProcStatusDone),
		newManufacture("O2", 2, 1.5, storage.ProcStatusDone),
	}

	mockStorage.On("ListOrders", mock.Anything, mock.Anything).Return(orders, 2, nil)
	mockStorage.On("GetProcurementsForOrders", mock.Anything, mock.Anything).Return(procs, nil)
	mockStorage.On("GetWorkerTimeLogsForOrders", mock.Anything, mock.Anything).Return(nil, nil)

	service := NewService(mockStorage, testWageRate)

	dash, err := service.ComputeDashboardKPI(context.Background(), Filter{})

	require.NoError(t, err)
	assert.Equal(t, "50", dash.AvgVariancePct.String())
}
