package kpi

import (
	"github.com/shopspring/decimal"

	"mfg-kpi/internal/storage"
)

// StatusPending is substituted for an absent order status.
const StatusPending = "pending"

// NormalizedOrder is the canonical per-order input tuple: every nullable
// column replaced by its default. DueDate stays a string, "" means no due
// date (никаких "0001-01-01").
type NormalizedOrder struct {
	OrderID               string
	ProductName           string
	Qty                   decimal.Decimal
	DueDate               string
	Sales                 decimal.Decimal
	EstimatedMaterialCost decimal.Decimal
	StdTimePerUnit        decimal.Decimal
	Status                string
	CustomerName          string
}

// NormalizeOrder applies the null→default substitution table. This is the
// only place defaults are applied, so the single-order and batch paths
// cannot diverge on defaulting policy.
func NormalizeOrder(row *storage.Order) NormalizedOrder {
	norm := NormalizedOrder{
		OrderID:               row.OrderID,
		ProductName:           row.ProductName,
		Qty:                   orZero(row.Qty),
		Sales:                 orZero(row.Sales),
		EstimatedMaterialCost: orZero(row.EstimatedMaterialCost),
		StdTimePerUnit:        orZero(row.StdTimePerUnit),
		Status:                StatusPending,
	}

	if row.DueDate.Valid {
		norm.DueDate = row.DueDate.String
	}
	if row.Status.Valid && row.Status.String != "" {
		norm.Status = row.Status.String
	}
	if row.CustomerName.Valid {
		norm.CustomerName = row.CustomerName.String
	}

	return norm
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Decimal{}
	}
	return d.Decimal
}
