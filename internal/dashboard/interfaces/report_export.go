package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	dashboardapp "energy-square/internal/dashboard/application"
)

const pointLayout = "2006-01-02 15:04"

// BuildEnergyFlowPDF renders the energy-flow report as a PDF.
func BuildEnergyFlowPDF(report dashboardapp.EnergyFlowReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Community Energy Flow Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Window: last %d day(s)", report.Days))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", report.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(5)

	pdf.Ln(4)
	pdf.Cell(0, 6, fmt.Sprintf("Produced (kWh): %.2f", report.Totals.ProducedKWh))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Consumed (kWh): %.2f", report.Totals.ConsumedKWh))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Sold (kWh): %.2f", report.Totals.SoldKWh))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Bought (kWh): %.2f", report.Totals.BoughtKWh))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Carbon Offset (kg): %.2f", report.CarbonKg))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Hour", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "Produced", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "Consumed", "1", 0, "C", false, 0, "")
	pdf.CellFormat(24, 6, "Sold", "1", 0, "C", false, 0, "")
	pdf.CellFormat(24, 6, "Bought", "1", 0, "C", false, 0, "")
	pdf.CellFormat(24, 6, "Efficiency", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, p := range report.Points {
		pdf.CellFormat(40, 5, p.Date.Format(pointLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(28, 5, fmt.Sprintf("%.2f", p.Produced), "1", 0, "R", false, 0, "")
		pdf.CellFormat(28, 5, fmt.Sprintf("%.2f", p.Consumed), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 5, fmt.Sprintf("%.2f", p.Sold), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 5, fmt.Sprintf("%.2f", p.Bought), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 5, fmt.Sprintf("%.2f", p.Efficiency), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildEnergyFlowXLSX renders the energy-flow report as a workbook with a
// summary sheet and an hourly sheet.
func BuildEnergyFlowXLSX(report dashboardapp.EnergyFlowReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	hourlySheet := "hourly"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(hourlySheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Community Energy Flow Report")
	_ = f.SetCellValue(summarySheet, "A3", "Days")
	_ = f.SetCellValue(summarySheet, "B3", report.Days)
	_ = f.SetCellValue(summarySheet, "A4", "Generated")
	_ = f.SetCellValue(summarySheet, "B4", report.GeneratedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A5", "Produced (kWh)")
	_ = f.SetCellValue(summarySheet, "B5", report.Totals.ProducedKWh)
	_ = f.SetCellValue(summarySheet, "A6", "Consumed (kWh)")
	_ = f.SetCellValue(summarySheet, "B6", report.Totals.ConsumedKWh)
	_ = f.SetCellValue(summarySheet, "A7", "Sold (kWh)")
	_ = f.SetCellValue(summarySheet, "B7", report.Totals.SoldKWh)
	_ = f.SetCellValue(summarySheet, "A8", "Bought (kWh)")
	_ = f.SetCellValue(summarySheet, "B8", report.Totals.BoughtKWh)
	_ = f.SetCellValue(summarySheet, "A9", "Carbon Offset (kg)")
	_ = f.SetCellValue(summarySheet, "B9", report.CarbonKg)

	headers := []string{"Hour", "Produced (kWh)", "Consumed (kWh)", "Sold (kWh)", "Bought (kWh)", "Carbon Offset (kg)", "Efficiency"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(hourlySheet, cell, h)
	}
	for i, p := range report.Points {
		row := i + 2
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("A%d", row), p.Date.Format(pointLayout))
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("B%d", row), p.Produced)
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("C%d", row), p.Consumed)
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("D%d", row), p.Sold)
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("E%d", row), p.Bought)
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("F%d", row), p.CarbonOffset)
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("G%d", row), p.Efficiency)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
