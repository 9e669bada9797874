// Package adminapi registers the back-office HTTP surface: operator
// auth, catalog/promotion/pack/customer CRUD, POS checkout, reports,
// system status and the messaging endpoints.
package adminapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/openmercato/mercato/internal/app"
	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/internal/webserver"
	"github.com/openmercato/mercato/pkg/common"
)

// GetApp returns the application context attached by the webserver.
func GetApp(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

// GetDB returns the request database handle.
func GetDB(c echo.Context) *gorm.DB {
	return GetApp(c).DB()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    data,
	})
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, echo.Map{
		"success": false,
		"code":    code,
		"message": message,
		"detail":  detail,
	})
}

func paged(c echo.Context, rows interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"data":     rows,
		"total":    total,
		"page":     page,
		"per_page": pageSize,
	})
}

// parsePagination reads page/perPage query params with sane bounds.
func parsePagination(c echo.Context) (page, pageSize int) {
	page = 1
	pageSize = 20
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(c.QueryParam("perPage")); err == nil && ps > 0 && ps <= 500 {
		pageSize = ps
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func handleValidationError(c echo.Context, err error) error {
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request parameters", err.Error())
}

// searchLike applies a case-insensitive LIKE filter over the given
// column, using ILIKE on postgres.
func searchLike(db *gorm.DB, column, q string) *gorm.DB {
	if strings.EqualFold(db.Name(), "postgres") {
		return db.Where(column+" ILIKE ?", "%"+q+"%")
	}
	return db.Where("LOWER("+column+") LIKE ?", "%"+strings.ToLower(q)+"%")
}

// sortColumn whitelists the sort field to avoid SQL injection and
// returns "col ASC|DESC".
func sortColumn(c echo.Context, allowed map[string]string, fallback string) string {
	col, okCol := allowed[strings.TrimSpace(c.QueryParam("sort"))]
	if !okCol || col == "" {
		col = fallback
	}
	order := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return col + " " + order
}

// oprName extracts the operator username from the bearer token without
// re-verifying it; the JWT middleware already did.
func oprName(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(strings.TrimPrefix(auth, "Bearer "), claims); err != nil {
		return ""
	}
	name, _ := claims["username"].(string)
	return name
}

// addOprLog records one back-office action in the audit trail.
func addOprLog(c echo.Context, action, desc string) {
	GetDB(c).Create(&domain.SysOprLog{
		ID:        common.UUIDint64(),
		OprName:   oprName(c),
		OprIp:     c.RealIP(),
		OptAction: action,
		OptDesc:   desc,
		OptTime:   time.Now(),
	})
}
