package handler

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// listParams carries the common search/sort/pagination query parameters.
type listParams struct {
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// parseListParams reads the standard listing parameters. Limit is capped
// at 100; the sort field is validated against allowed before being
// interpolated into ORDER BY.
func parseListParams(c echo.Context, allowed map[string]string) (listParams, string) {
	p := listParams{
		Search:    c.QueryParam("search"),
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
		Page:      1,
		Limit:     10,
	}

	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v >= 1 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v >= 1 {
		p.Limit = v
	}
	if p.Limit > 100 {
		p.Limit = 100
	}

	column, ok := allowed[p.SortBy]
	if !ok {
		column = allowed["created_at"]
	}
	direction := "DESC"
	if p.SortOrder == "asc" || p.SortOrder == "ASC" {
		direction = "ASC"
	}

	return p, column + " " + direction
}

// paginated is the listing envelope shared by all collection endpoints.
type paginated struct {
	Total       int64       `json:"total"`
	Page        int         `json:"page"`
	Limit       int         `json:"limit"`
	HasNext     bool        `json:"has_next"`
	HasPrevious bool        `json:"has_previous"`
	Items       interface{} `json:"items"`
}

func newPaginated(total int64, p listParams, items interface{}) paginated {
	return paginated{
		Total:       total,
		Page:        p.Page,
		Limit:       p.Limit,
		HasNext:     int64(p.Page*p.Limit) < total,
		HasPrevious: p.Page > 1,
		Items:       items,
	}
}

// currentUserID returns the authenticated user's row id from the JWT
// claims stored by the auth middleware.
func currentUserID(c echo.Context) (uuid.UUID, bool) {
	raw, _ := c.Get("user_id").(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// isAdmin reports whether the authenticated user carries the admin role.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("user_role").(string)
	return role == "admin"
}
