package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/blubb/server/service/user"
)

type updateUserRequest struct {
	Email   *string `json:"email"`
	Name    *string `json:"name"`
	Profile *string `json:"profile"`
}

// GetUser handles GET /api/v1/user, returning the caller's own profile.
func (s *APIV1Service) GetUser(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	summary, err := s.UserService.GetUser(c.Request().Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"user": summary})
}

// GetUserByID handles GET /api/v1/user/:userID. Callers may only read their
// own profile.
func (s *APIV1Service) GetUserByID(c echo.Context) error {
	currentID, ok := currentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	userID, err := pathID(c, "userID")
	if err != nil {
		return err
	}
	if userID != currentID {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Access denied"})
	}

	summary, err := s.UserService.GetUser(c.Request().Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"user": summary})
}

// UpdateUser handles PATCH /api/v1/user.
func (s *APIV1Service) UpdateUser(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	request := &updateUserRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	summary, err := s.UserService.UpdateUser(c.Request().Context(), userID, &user.UpdateRequest{
		Email:   request.Email,
		Name:    request.Name,
		Profile: request.Profile,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": "User info updated successfully",
		"user":    summary,
	})
}
