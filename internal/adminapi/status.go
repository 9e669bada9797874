package adminapi

import (
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/internal/webserver"
)

var startedAt = time.Now()

func registerStatusRoutes() {
	webserver.ApiGET("/system/status", systemStatus)
	webserver.ApiGET("/system/oprlogs", listOprLogs)
}

// systemStatus reports host and process health for the dashboard.
func systemStatus(c echo.Context) error {
	status := echo.Map{
		"uptime_seconds": int64(time.Since(startedAt).Seconds()),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
	}

	if info, err := host.Info(); err == nil {
		status["hostname"] = info.Hostname
		status["os"] = info.Platform + " " + info.PlatformVersion
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status["mem_total"] = vm.Total
		status["mem_used_percent"] = vm.UsedPercent
	}
	if du, err := disk.Usage("/"); err == nil {
		status["disk_total"] = du.Total
		status["disk_used_percent"] = du.UsedPercent
	}

	var productCount, saleCount int64
	GetDB(c).Model(&domain.Product{}).Count(&productCount)
	GetDB(c).Model(&domain.Sale{}).Count(&saleCount)
	status["products"] = productCount
	status["sales"] = saleCount

	return ok(c, status)
}

func listOprLogs(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.SysOprLog{})
	if name := c.QueryParam("opr_name"); name != "" {
		db = db.Where("opr_name = ?", name)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query logs", err.Error())
	}
	var rows []domain.SysOprLog
	if err := db.Order("opt_time DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query logs", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}
