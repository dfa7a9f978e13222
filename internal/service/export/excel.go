package export

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"mfg-kpi/internal/service/kpi"
)

type KPIRows interface {
	ExportKPIRows(ctx context.Context, filter kpi.Filter) ([]kpi.OrderKPI, error)
}

type ExcelService struct {
	kpi KPIRows
}

func NewExcelService(rows KPIRows) *ExcelService {
	return &ExcelService{kpi: rows}
}

// GenerateExcel renders the exported KPI rows into one styled worksheet.
func (g *ExcelService) GenerateExcel(ctx context.Context, filter kpi.Filter) ([]byte, error) {
	rows, err := g.kpi.ExportKPIRows(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch data: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Order KPI"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})

	headers := []string{
		"№ Заказа", "Наименование", "Заказчик", "Срок", "Статус", "Кол-во",
		"Продажи", "Материалы", "Труд", "Прибыль", "Н/час факт", "Отклонение %",
	}

	for i, name := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, name)
	}

	lastCol, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(sheet, "A1", lastCol, headerStyle)

	for rowIdx, k := range rows {
		rowNum := rowIdx + 2

		f.SetCellValue(sheet, cellName(1, rowNum), k.OrderID)
		f.SetCellValue(sheet, cellName(2, rowNum), k.ProductName)
		f.SetCellValue(sheet, cellName(3, rowNum), k.CustomerName)
		f.SetCellValue(sheet, cellName(4, rowNum), k.DueDate)
		f.SetCellValue(sheet, cellName(5, rowNum), k.Status)
		setDecimal(f, sheet, cellName(6, rowNum), k.Qty)
		setDecimal(f, sheet, cellName(7, rowNum), k.Sales)
		setDecimal(f, sheet, cellName(8, rowNum), k.MaterialCost)
		setDecimal(f, sheet, cellName(9, rowNum), k.LaborCost)
		setDecimal(f, sheet, cellName(10, rowNum), k.GrossProfit)
		setDecimal(f, sheet, cellName(11, rowNum), k.ActualTimePerUnit)
		setDecimal(f, sheet, cellName(12, rowNum), k.VariancePct)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}

	return buf.Bytes(), nil
}

func cellName(col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return cell
}

func setDecimal(f *excelize.File, sheet, cell string, d decimal.Decimal) {
	f.SetCellValue(sheet, cell, d.InexactFloat64())
}
