package storage

import (
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrOrderNotFound — заказ не найден. Not a query failure, checked with errors.Is.
var ErrOrderNotFound = errors.New("order not found")

const (
	KindPurchase    = "purchase"
	KindManufacture = "manufacture"

	ProcStatusPlanned    = "planned"
	ProcStatusOrdered    = "ordered"
	ProcStatusReceived   = "received"
	ProcStatusInProgress = "in-progress"
	ProcStatusDone       = "done"
)

// Order is a raw row from the orders table. Nullable columns keep their
// null markers here; defaulting happens in one place in the kpi service.
type Order struct {
	OrderID               string              `json:"order_id"`
	ProductName           string              `json:"product_name"`
	Qty                   decimal.NullDecimal `json:"qty"`
	DueDate               sql.NullString      `json:"due_date"`
	Sales                 decimal.NullDecimal `json:"sales"`
	EstimatedMaterialCost decimal.NullDecimal `json:"estimated_material_cost"`
	StdTimePerUnit        decimal.NullDecimal `json:"std_time_per_unit"`
	Status                sql.NullString      `json:"status"`
	CustomerName          sql.NullString      `json:"customer_name"`
}

// Procurement is a purchase or manufacture step of one order,
// discriminated by Kind. UnitPrice is only meaningful for purchases,
// ActTimePerUnit for manufactures.
type Procurement struct {
	ID             int64               `json:"id"`
	OrderID        string              `json:"order_id"`
	Kind           string              `json:"kind"`
	Qty            decimal.NullDecimal `json:"qty"`
	UnitPrice      decimal.NullDecimal `json:"unit_price"`
	ActTimePerUnit decimal.NullDecimal `json:"act_time_per_unit"`
	Status         sql.NullString      `json:"status"`
	ETA            sql.NullString      `json:"eta"`
	ReceivedAt     sql.NullString      `json:"received_at"`
	CompletedAt    sql.NullString      `json:"completed_at"`
}

// WorkerTimeLog is a manual labor entry outside the procurement flow.
type WorkerTimeLog struct {
	ID             int64               `json:"id"`
	OrderID        string              `json:"order_id"`
	Worker         string              `json:"worker"`
	Qty            decimal.NullDecimal `json:"qty"`
	ActTimePerUnit decimal.NullDecimal `json:"act_time_per_unit"`
	Date           sql.NullString      `json:"date"`
}

// OrderFilter narrows ListOrders. From/To bound due_date (YYYY-MM-DD,
// empty = unbounded), Query matches product_name. Limit <= 0 disables
// slicing — dashboard, export and calendar read the full filtered set.
type OrderFilter struct {
	From   string
	To     string
	Query  string
	Limit  int
	Offset int
}
