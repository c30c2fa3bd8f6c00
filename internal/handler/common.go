package handler // handler defines http handlers

import (
	"errors"  // errors provides the sentinel used in getUserID
	"strconv" // strconv converts strings to numeric types

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/iliyamo/estate-market/internal/policy" // policy defines the role type
)

// getUserID extracts the user_id from echo.Context and converts it to
// uint64.  The JWT middleware stores claims without normalizing their
// type, so every plausible representation is accepted.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// getRole extracts the role claim stored by the JWT middleware.  An
// absent or malformed claim comes back as the empty role, which the
// capability table treats as the most restricted.
func getRole(c echo.Context) policy.Role {
	if s, ok := c.Get("role").(string); ok {
		return policy.Role(s)
	}
	return ""
}
