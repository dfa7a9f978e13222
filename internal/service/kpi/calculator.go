package kpi

import (
	"github.com/shopspring/decimal"

	"mfg-kpi/internal/storage"
)

var hundred = decimal.NewFromInt(100)

// OrderKPI are the derived financial and scheduling metrics of one order,
// recomputed on every request. variance_pct is 0 when the standard time is
// unset; varianceKnown keeps "unset" distinct from a genuine zero inside
// the package.
type OrderKPI struct {
	OrderID           string          `json:"order_id"`
	ProductName       string          `json:"product_name"`
	CustomerName      string          `json:"customer_name,omitempty"`
	Qty               decimal.Decimal `json:"qty"`
	DueDate           string          `json:"due_date,omitempty"`
	Status            string          `json:"status"`
	Sales             decimal.Decimal `json:"sales"`
	StdTimePerUnit    decimal.Decimal `json:"std_time_per_unit"`
	MaterialCost      decimal.Decimal `json:"material_cost"`
	LaborCost         decimal.Decimal `json:"labor_cost"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	ActualTimePerUnit decimal.Decimal `json:"actual_time_per_unit"`
	VariancePct       decimal.Decimal `json:"variance_pct"`

	varianceKnown bool
}

// ComputeOrderKPI derives the metrics of one order from its normalized row
// and the joined procurement and work-log rows. Pure function, no rounding:
//
//   - material cost = qty*estimate + received purchases (qty*unit_price);
//     purchases not yet received model committed, not actual spend and
//     contribute nothing
//   - actual hours = manufacture qty*act_time (любой статус, даже planned)
//     + work-log qty*act_time
//   - labor cost = wageRate * actual hours
//   - variance % = (actual/unit − std/unit)/std/unit * 100, only when the
//     standard is set
func ComputeOrderKPI(order NormalizedOrder, procs []*storage.Procurement, logs []*storage.WorkerTimeLog, wageRate decimal.Decimal) OrderKPI {
	baseMaterialCost := order.Qty.Mul(order.EstimatedMaterialCost)

	var purchaseMaterialCost, manufactureHours decimal.Decimal
	for _, p := range procs {
		switch p.Kind {
		case storage.KindPurchase:
			if p.Status.String == storage.ProcStatusReceived {
				purchaseMaterialCost = purchaseMaterialCost.Add(orZero(p.Qty).Mul(orZero(p.UnitPrice)))
			}
		case storage.KindManufacture:
			manufactureHours = manufactureHours.Add(orZero(p.Qty).Mul(orZero(p.ActTimePerUnit)))
		}
	}

	var workerLogHours decimal.Decimal
	for _, l := range logs {
		workerLogHours = workerLogHours.Add(orZero(l.Qty).Mul(orZero(l.ActTimePerUnit)))
	}

	totalActualHours := manufactureHours.Add(workerLogHours)

	var actualTimePerUnit decimal.Decimal
	if order.Qty.IsPositive() {
		actualTimePerUnit = totalActualHours.Div(order.Qty)
	}

	materialCost := baseMaterialCost.Add(purchaseMaterialCost)
	laborCost := wageRate.Mul(totalActualHours)

	kpi := OrderKPI{
		OrderID:           order.OrderID,
		ProductName:       order.ProductName,
		CustomerName:      order.CustomerName,
		Qty:               order.Qty,
		DueDate:           order.DueDate,
		Status:            order.Status,
		Sales:             order.Sales,
		StdTimePerUnit:    order.StdTimePerUnit,
		MaterialCost:      materialCost,
		LaborCost:         laborCost,
		GrossProfit:       order.Sales.Sub(materialCost).Sub(laborCost),
		ActualTimePerUnit: actualTimePerUnit,
	}

	if order.StdTimePerUnit.IsPositive() {
		kpi.VariancePct = actualTimePerUnit.Sub(order.StdTimePerUnit).Div(order.StdTimePerUnit).Mul(hundred)
		kpi.varianceKnown = true
	}

	return kpi
}

// TotalActualHours is the order-wide hour total as the dashboard counts it,
// qty * actual_time_per_unit. Zero for qty=0 orders even when work-log hours
// exist.
func (k OrderKPI) TotalActualHours() decimal.Decimal {
	return k.Qty.Mul(k.ActualTimePerUnit)
}
