package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"mfg-kpi/internal/storage"
)

const procurementColumns = `id, order_id, kind, qty, unit_price, act_time_per_unit, status, eta, received_at, completed_at`

func (s *Storage) GetProcurements(ctx context.Context, orderID string) ([]*storage.Procurement, error) {
	const op = "storage.procurements.GetProcurements.sql"

	stmt := `SELECT ` + procurementColumns + ` FROM procurements WHERE order_id = ? ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, stmt, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: id=%s: %w", op, orderID, err)
	}
	defer rows.Close()

	return scanProcurements(op, rows)
}

// GetProcurementsForOrders fetches procurements of several orders in one
// round trip. Empty id set is a valid empty result, no query issued.
func (s *Storage) GetProcurementsForOrders(ctx context.Context, orderIDs []string) ([]*storage.Procurement, error) {
	const op = "storage.procurements.GetProcurementsForOrders.sql"

	if len(orderIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(orderIDs)), ",")
	stmt := `SELECT ` + procurementColumns + ` FROM procurements WHERE order_id IN (` + placeholders + `) ORDER BY id ASC`

	args := make([]interface{}, 0, len(orderIDs))
	for _, id := range orderIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return scanProcurements(op, rows)
}

func scanProcurements(op string, rows *sql.Rows) ([]*storage.Procurement, error) {
	var procs []*storage.Procurement

	for rows.Next() {
		var p storage.Procurement

		err := rows.Scan(
			&p.ID,
			&p.OrderID,
			&p.Kind,
			&p.Qty,
			&p.UnitPrice,
			&p.ActTimePerUnit,
			&p.Status,
			&p.ETA,
			&p.ReceivedAt,
			&p.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		procs = append(procs, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: ошибка сканирования строк %w", op, err)
	}

	return procs, nil
}
