package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"mfg-kpi/internal/storage"
)

const workerTimeLogColumns = `id, order_id, worker, qty, act_time_per_unit, date`

func (s *Storage) GetWorkerTimeLogs(ctx context.Context, orderID string) ([]*storage.WorkerTimeLog, error) {
	const op = "storage.worker-time-logs.GetWorkerTimeLogs.sql"

	stmt := `SELECT ` + workerTimeLogColumns + ` FROM worker_time_logs WHERE order_id = ? ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, stmt, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: id=%s: %w", op, orderID, err)
	}
	defer rows.Close()

	return scanWorkerTimeLogs(op, rows)
}

func (s *Storage) GetWorkerTimeLogsForOrders(ctx context.Context, orderIDs []string) ([]*storage.WorkerTimeLog, error) {
	const op = "storage.worker-time-logs.GetWorkerTimeLogsForOrders.sql"

	if len(orderIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(orderIDs)), ",")
	stmt := `SELECT ` + workerTimeLogColumns + ` FROM worker_time_logs WHERE order_id IN (` + placeholders + `) ORDER BY id ASC`

	args := make([]interface{}, 0, len(orderIDs))
	for _, id := range orderIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return scanWorkerTimeLogs(op, rows)
}

func scanWorkerTimeLogs(op string, rows *sql.Rows) ([]*storage.WorkerTimeLog, error) {
	var logs []*storage.WorkerTimeLog

	for rows.Next() {
		var l storage.WorkerTimeLog

		err := rows.Scan(&l.ID, &l.OrderID, &l.Worker, &l.Qty, &l.ActTimePerUnit, &l.Date)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		logs = append(logs, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: ошибка сканирования строк %w", op, err)
	}

	return logs, nil
}
