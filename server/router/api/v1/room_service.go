package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type createRoomRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// ListRooms handles GET /api/v1/rooms.
func (s *APIV1Service) ListRooms(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	rooms, err := s.RoomService.ListRooms(c.Request().Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"rooms": rooms})
}

// CreateRoom handles POST /api/v1/rooms.
func (s *APIV1Service) CreateRoom(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	request := &createRoomRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if request.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Room name is required"})
	}

	created, err := s.RoomService.CreateRoom(c.Request().Context(), userID, request.Name, request.Description)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"message": "Room created successfully",
		"room":    created,
	})
}

// GetRoom handles GET /api/v1/rooms/:roomID.
func (s *APIV1Service) GetRoom(c echo.Context) error {
	if _, ok := currentUserID(c); !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	roomID, err := pathID(c, "roomID")
	if err != nil {
		return err
	}

	summary, err := s.RoomService.GetRoom(c.Request().Context(), roomID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"room": summary})
}

// ListRoomParticipants handles GET /api/v1/rooms/:roomID/participants.
func (s *APIV1Service) ListRoomParticipants(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	roomID, err := pathID(c, "roomID")
	if err != nil {
		return err
	}

	participants, err := s.RoomService.ListParticipants(c.Request().Context(), userID, roomID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"participants": participants})
}

// JoinRoom handles POST /api/v1/rooms/:roomID/join. Joining a room the caller
// is already in returns 200, a fresh join 201.
func (s *APIV1Service) JoinRoom(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	roomID, err := pathID(c, "roomID")
	if err != nil {
		return err
	}

	alreadyMember, err := s.RoomService.JoinRoom(c.Request().Context(), userID, roomID)
	if err != nil {
		return errorResponse(c, err)
	}
	if alreadyMember {
		return c.JSON(http.StatusOK, map[string]string{"message": "Already joined"})
	}
	return c.JSON(http.StatusCreated, map[string]string{"message": "Joined room successfully"})
}

// LeaveRoom handles DELETE /api/v1/rooms/:roomID/leave.
func (s *APIV1Service) LeaveRoom(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	roomID, err := pathID(c, "roomID")
	if err != nil {
		return err
	}

	if err := s.RoomService.LeaveRoom(c.Request().Context(), userID, roomID); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Left room successfully"})
}

// WarmupCache handles POST /api/v1/cache/warmup.
func (s *APIV1Service) WarmupCache(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	if err := s.RoomService.Warmup(c.Request().Context(), userID); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Cache warmed up successfully"})
}
