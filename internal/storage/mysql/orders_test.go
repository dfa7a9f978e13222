package mysql

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mfg-kpi/internal/storage"
)

type TestOrderFixture struct {
	OrderID      string
	ProductName  string
	Qty          interface{} // nil → NULL
	DueDate      interface{}
	Sales        interface{}
	Estimate     interface{}
	StdTime      interface{}
	Status       interface{}
	CustomerName interface{}
}

func createTestOrder(t *testing.T, fixture TestOrderFixture) {
	t.Helper()

	_, err := testDB.Exec(`
		INSERT INTO orders (order_id, product_name, qty, due_date, sales, estimated_material_cost, std_time_per_unit, status, customer_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, fixture.OrderID, fixture.ProductName, fixture.Qty, fixture.DueDate, fixture.Sales, fixture.Estimate, fixture.StdTime, fixture.Status, fixture.CustomerName)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = testDB.Exec(`DELETE FROM orders WHERE order_id = ?`, fixture.OrderID)
	})
}

func createTestProcurement(t *testing.T, orderID, kind string, qty, unitPrice, actTime, status, eta, receivedAt, completedAt interface{}) {
	t.Helper()

	_, err := testDB.Exec(`
		INSERT INTO procurements (order_id, kind, qty, unit_price, act_time_per_unit, status, eta, received_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, orderID, kind, qty, unitPrice, actTime, status, eta, receivedAt, completedAt)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = testDB.Exec(`DELETE FROM procurements WHERE order_id = ?`, orderID)
	})
}

func TestGetOrder_NullsPreserved(t *testing.T) {
	s := &Storage{db: testDB}

	createTestOrder(t, TestOrderFixture{
		OrderID:     "tst-get-1",
		ProductName: "Окно КП45",
		Qty:         10,
		Sales:       100000,
		// due_date, estimate, std_time, status, customer — NULL
	})

	order, err := s.GetOrder(context.Background(), "tst-get-1")
	require.NoError(t, err)

	assert.Equal(t, "tst-get-1", order.OrderID)
	assert.True(t, order.Qty.Valid)
	assert.Equal(t, "10", order.Qty.Decimal.String())
	// NULL-колонки доходят до сервиса как NULL, без подстановок
	assert.False(t, order.DueDate.Valid)
	assert.False(t, order.EstimatedMaterialCost.Valid)
	assert.False(t, order.StdTimePerUnit.Valid)
	assert.False(t, order.Status.Valid)
	assert.False(t, order.CustomerName.Valid)
}

func TestGetOrder_NotFound(t *testing.T) {
	s := &Storage{db: testDB}

	order, err := s.GetOrder(context.Background(), "tst-no-such-order")

	assert.Nil(t, order)
	assert.True(t, errors.Is(err, storage.ErrOrderNotFound))
}

func TestListOrders_FilterAndPagination(t *testing.T) {
	s := &Storage{db: testDB}

	createTestOrder(t, TestOrderFixture{OrderID: "tst-list-1", ProductName: "Окно стандарт", DueDate: "2025-03-05"})
	createTestOrder(t, TestOrderFixture{OrderID: "tst-list-2", ProductName: "Окно премиум", DueDate: "2025-03-01"})
	createTestOrder(t, TestOrderFixture{OrderID: "tst-list-3", ProductName: "Дверь", DueDate: "2025-03-03"})
	createTestOrder(t, TestOrderFixture{OrderID: "tst-list-4", ProductName: "Окно эконом", DueDate: "2025-05-01"})

	// текстовый фильтр + диапазон сроков
	orders, total, err := s.ListOrders(context.Background(), storage.OrderFilter{
		From:  "2025-03-01",
		To:    "2025-03-31",
		Query: "Окно",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, total)
	require.Len(t, orders, 2)
	// сортировка по сроку по возрастанию
	assert.Equal(t, "tst-list-2", orders[0].OrderID)
	assert.Equal(t, "tst-list-1", orders[1].OrderID)

	// постранично: вторая страница по одному
	page2, total, err := s.ListOrders(context.Background(), storage.OrderFilter{
		From:   "2025-03-01",
		To:     "2025-03-31",
		Query:  "Окно",
		Limit:  1,
		Offset: 1,
	})
	require.NoError(t, err)

	// total не зависит от страницы
	assert.Equal(t, 2, total)
	require.Len(t, page2, 1)
	assert.Equal(t, "tst-list-1", page2[0].OrderID)
}

func TestGetProcurementsForOrders(t *testing.T) {
	s := &Storage{db: testDB}

	createTestOrder(t, TestOrderFixture{OrderID: "tst-proc-1", ProductName: "Окно"})
	createTestOrder(t, TestOrderFixture{OrderID: "tst-proc-2", ProductName: "Дверь"})
	createTestProcurement(t, "tst-proc-1", storage.KindPurchase, 10, 50, nil, "received", "2025-03-01", "2025-03-02", nil)
	createTestProcurement(t, "tst-proc-2", storage.KindManufacture, 5, nil, 1.5, "planned", nil, nil, nil)

	procs, err := s.GetProcurementsForOrders(context.Background(), []string{"tst-proc-1", "tst-proc-2"})
	require.NoError(t, err)

	require.Len(t, procs, 2)
	assert.Equal(t, storage.KindPurchase, procs[0].Kind)
	assert.True(t, procs[0].ReceivedAt.Valid)
	assert.False(t, procs[1].UnitPrice.Valid)

	// пустой набор id — пустой результат без запроса
	empty, err := s.GetProcurementsForOrders(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
