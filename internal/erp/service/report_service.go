package service

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ReportService 分配结果导出
type ReportService struct {
	alloc *AllocationService
}

func NewReportService(alloc *AllocationService) *ReportService {
	return &ReportService{alloc: alloc}
}

// AllocationReport 生成订单分配汇总的xlsx
func (s *ReportService) AllocationReport(ctx context.Context, org OrgContext, soID string) (*excelize.File, string, error) {
	panel, err := s.alloc.GetAllocationPanel(ctx, org, soID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := "Allocation"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Line", "Product", "Ordered", "Allocated", "Backorder", "Strategy", "Lots Used"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for i, pl := range panel.Lines {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), pl.Line.ProductCode)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), pl.Line.QuantityOrdered)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), pl.Line.QuantityAllocated)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), CalculateBackorderQty(pl.Line.QuantityOrdered, pl.Line.QuantityAllocated))
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), pl.Strategy)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), len(pl.Allocations))
		row++
	}

	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total ordered")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), panel.Summary.TotalOrdered)
	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total allocated")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), panel.Summary.TotalAllocated)
	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Fulfillment %")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), panel.Summary.FulfillmentPct)

	filename := fmt.Sprintf("allocation-%s.xlsx", panel.SOCode)
	return f, filename, nil
}
