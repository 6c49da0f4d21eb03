package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/notify-redirector/internal/model"
	"github.com/jmehdipour/notify-redirector/internal/repository"
	echo "github.com/labstack/echo/v4"
)

func listEventsHandler(repo repository.EventsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		var kind model.EventKind
		if raw := strings.TrimSpace(c.QueryParam("kind")); raw != "" {
			tmp := model.EventKind(raw)
			if !tmp.Valid() {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid kind"})
			}
			kind = tmp
		}

		events, err := repo.ListRecent(c.Request().Context(), kind, limit, offset)
		if err != nil {
			c.Logger().Errorf("events list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(events),
			"results": events,
		})
	}
}
