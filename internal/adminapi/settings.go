package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/internal/webserver"
)

func registerSettingsRoutes() {
	webserver.ApiGET("/settings", listSettings)
	webserver.ApiPOST("/settings", saveSettings)
	webserver.ApiGET("/settings/schedulers", listSchedulers)
	webserver.ApiPOST("/settings/schedulers/:id/run", runScheduler)
	webserver.ApiPUT("/settings/schedulers/:id", updateScheduler)
}

func listSettings(c echo.Context) error {
	var rows []domain.SysConfig
	if err := GetDB(c).Order("type ASC, sort ASC, name ASC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query settings", err.Error())
	}
	return ok(c, rows)
}

// saveSettings upserts a flat "category.key" -> value map.
func saveSettings(c echo.Context) error {
	var payload map[string]interface{}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse settings", err.Error())
	}
	if len(payload) == 0 {
		return fail(c, http.StatusBadRequest, "EMPTY_SETTINGS", "No settings provided", nil)
	}
	if err := GetApp(c).SaveSettings(payload); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save settings", err.Error())
	}
	addOprLog(c, "save_settings", "")
	return ok(c, nil)
}

func listSchedulers(c echo.Context) error {
	var rows []domain.StoreScheduler
	if err := GetDB(c).Order("id ASC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query schedulers", err.Error())
	}
	return ok(c, rows)
}

// runScheduler triggers one scheduler row immediately, outside its
// normal interval.
func runScheduler(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid scheduler ID", nil)
	}
	if err := GetApp(c).RunSchedulerNow(id); err != nil {
		return fail(c, http.StatusInternalServerError, "SCHEDULER_ERROR", "Failed to run scheduler", err.Error())
	}
	addOprLog(c, "run_scheduler", c.Param("id"))
	return ok(c, nil)
}

type schedulerPayload struct {
	Interval int    `json:"interval" validate:"required,gte=10"`
	Status   string `json:"status" validate:"required,oneof=enabled disabled"`
	Remark   string `json:"remark" validate:"omitempty,max=500"`
}

func updateScheduler(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid scheduler ID", nil)
	}
	var payload schedulerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse scheduler", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var row domain.StoreScheduler
	if err := GetDB(c).Where("id = ?", id).First(&row).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Scheduler not found", nil)
	}

	if err := GetDB(c).Model(&row).Updates(map[string]interface{}{
		"interval": payload.Interval,
		"status":   payload.Status,
		"remark":   payload.Remark,
	}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update scheduler", err.Error())
	}
	addOprLog(c, "update_scheduler", row.Name)
	return ok(c, row)
}
