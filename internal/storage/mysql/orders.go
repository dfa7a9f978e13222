package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"mfg-kpi/internal/storage"
)

const orderColumns = `order_id, product_name, qty, due_date, sales, estimated_material_cost, std_time_per_unit, status, customer_name`

func (s *Storage) GetOrder(ctx context.Context, orderID string) (*storage.Order, error) {
	const op = "storage.orders.GetOrder.sql"

	stmt := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = ?`

	var order storage.Order
	err := s.db.QueryRowContext(ctx, stmt, orderID).Scan(
		&order.OrderID,
		&order.ProductName,
		&order.Qty,
		&order.DueDate,
		&order.Sales,
		&order.EstimatedMaterialCost,
		&order.StdTimePerUnit,
		&order.Status,
		&order.CustomerName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: id=%s: %w", op, orderID, storage.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("%s: id=%s: %w", op, orderID, err)
	}

	return &order, nil
}

// ListOrders returns the filtered orders ordered by due date ascending plus
// the total count matching the filter without the LIMIT/OFFSET slice.
func (s *Storage) ListOrders(ctx context.Context, filter storage.OrderFilter) ([]*storage.Order, int, error) {
	const op = "storage.orders.ListOrders.sql"

	var conds []string
	var args []interface{}

	if filter.From != "" {
		conds = append(conds, "due_date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		conds = append(conds, "due_date <= ?")
		args = append(args, filter.To)
	}
	if filter.Query != "" {
		conds = append(conds, "product_name LIKE ?")
		args = append(args, "%"+filter.Query+"%")
	}

	var where string
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: подсчет заказов %w", op, err)
	}

	stmt := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY due_date ASC, order_id ASC`
	if filter.Limit > 0 {
		stmt += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var orders []*storage.Order
	for rows.Next() {
		var order storage.Order

		err := rows.Scan(
			&order.OrderID,
			&order.ProductName,
			&order.Qty,
			&order.DueDate,
			&order.Sales,
			&order.EstimatedMaterialCost,
			&order.StdTimePerUnit,
			&order.Status,
			&order.CustomerName,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}

		orders = append(orders, &order)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: ошибка сканирования строк %w", op, err)
	}

	return orders, total, nil
}
