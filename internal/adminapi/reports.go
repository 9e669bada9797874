package adminapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/labstack/echo/v4"
	"github.com/montanaflynn/stats"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/internal/pricing"
	"github.com/openmercato/mercato/internal/webserver"
	"github.com/openmercato/mercato/pkg/metrics"
)

func registerReportRoutes() {
	webserver.ApiGET("/reports/sales/summary", salesSummary)
	webserver.ApiGET("/reports/sales/export", exportSales)
	webserver.ApiGET("/reports/metrics/:name", queryMetrics)
}

// reportWindow parses from/to query params, defaulting to the last 30
// days.
func reportWindow(c echo.Context) (from, to time.Time) {
	to = time.Now()
	from = to.AddDate(0, 0, -30)
	if s := c.QueryParam("from"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			from = t
		}
	}
	if s := c.QueryParam("to"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			to = t.Add(24*time.Hour - time.Second)
		}
	}
	return from, to
}

// salesSummary aggregates sales over the window: count, revenue,
// discount given, plus mean/median/p90 ticket size.
func salesSummary(c echo.Context) error {
	from, to := reportWindow(c)

	var rows []domain.Sale
	if err := GetDB(c).Where("created_at BETWEEN ? AND ?", from, to).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sales", err.Error())
	}

	totals := make([]float64, 0, len(rows))
	var revenue, discount float64
	for _, sale := range rows {
		totals = append(totals, sale.Total)
		revenue += sale.Total
		discount += sale.Discount
	}

	summary := echo.Map{
		"from":     from,
		"to":       to,
		"count":    len(rows),
		"revenue":  pricing.Round2(revenue),
		"discount": pricing.Round2(discount),
	}
	if len(totals) > 0 {
		mean, _ := stats.Mean(totals)
		median, _ := stats.Median(totals)
		p90, _ := stats.Percentile(totals, 90)
		max, _ := stats.Max(totals)
		summary["ticket_mean"] = pricing.Round2(mean)
		summary["ticket_median"] = pricing.Round2(median)
		summary["ticket_p90"] = pricing.Round2(p90)
		summary["ticket_max"] = pricing.Round2(max)
	}
	return ok(c, summary)
}

func exportSales(c echo.Context) error {
	from, to := reportWindow(c)

	var rows []domain.Sale
	if err := GetDB(c).Preload("Details").
		Where("created_at BETWEEN ? AND ?", from, to).
		Order("created_at ASC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sales", err.Error())
	}

	file := excelize.NewFile()
	sheet := "Sales"
	file.SetSheetName("Sheet1", sheet)

	headers := []string{"SaleNo", "Date", "Customer", "Subtotal", "Discount", "Total", "PayMethod", "Lines"}
	for i, h := range headers {
		file.SetCellValue(sheet, fmt.Sprintf("%c1", 'A'+i), h)
	}
	for i, sale := range rows {
		r := i + 2
		file.SetCellValue(sheet, fmt.Sprintf("A%d", r), sale.SaleNo)
		file.SetCellValue(sheet, fmt.Sprintf("B%d", r), sale.CreatedAt.Format("2006-01-02 15:04:05"))
		file.SetCellValue(sheet, fmt.Sprintf("C%d", r), sale.CustomerName)
		file.SetCellValue(sheet, fmt.Sprintf("D%d", r), sale.Subtotal)
		file.SetCellValue(sheet, fmt.Sprintf("E%d", r), sale.Discount)
		file.SetCellValue(sheet, fmt.Sprintf("F%d", r), sale.Total)
		file.SetCellValue(sheet, fmt.Sprintf("G%d", r), sale.PayMethod)
		file.SetCellValue(sheet, fmt.Sprintf("H%d", r), len(sale.Details))
	}

	addOprLog(c, "export_sales", fmt.Sprintf("%s to %s, %d rows", from.Format("2006-01-02"), to.Format("2006-01-02"), len(rows)))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="sales.xlsx"`)
	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().WriteHeader(http.StatusOK)
	return file.Write(c.Response())
}

// queryMetrics exposes the local time-series store for the dashboard
// sparklines.
func queryMetrics(c echo.Context) error {
	name := c.Param("name")
	switch name {
	case metrics.MetricHTTPRequest, metrics.MetricSaleCount, metrics.MetricSaleAmount,
		metrics.MetricWebhookMsg, metrics.MetricCatalogSync:
	default:
		return fail(c, http.StatusBadRequest, "UNKNOWN_METRIC", "Unknown metric name", nil)
	}

	end := time.Now()
	start := end.Add(-24 * time.Hour)
	points, err := metrics.Query(name, start.Unix(), end.Unix())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "METRICS_ERROR", "Failed to query metrics", err.Error())
	}
	return ok(c, points)
}
