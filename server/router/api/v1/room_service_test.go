package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcerrors "github.com/hrygo/blubb/internal/errors"
	"github.com/hrygo/blubb/server/service/room"
)

// stubRoomService returns canned values per method.
type stubRoomService struct {
	rooms        []*room.RoomSummary
	detail       *room.RoomSummary
	participants []*room.ParticipantSummary

	alreadyMember bool
	err           error
}

func (s *stubRoomService) ListRooms(ctx context.Context, userID int32) ([]*room.RoomSummary, error) {
	return s.rooms, s.err
}

func (s *stubRoomService) GetRoom(ctx context.Context, roomID int32) (*room.RoomSummary, error) {
	return s.detail, s.err
}

func (s *stubRoomService) ListParticipants(ctx context.Context, userID, roomID int32) ([]*room.ParticipantSummary, error) {
	return s.participants, s.err
}

func (s *stubRoomService) CreateRoom(ctx context.Context, userID int32, name string, description *string) (*room.RoomSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &room.RoomSummary{ID: 1, Name: name, Description: description, CreatedBy: userID, ParticipantsCount: 1}, nil
}

func (s *stubRoomService) JoinRoom(ctx context.Context, userID, roomID int32) (bool, error) {
	return s.alreadyMember, s.err
}

func (s *stubRoomService) LeaveRoom(ctx context.Context, userID, roomID int32) error {
	return s.err
}

func (s *stubRoomService) Warmup(ctx context.Context, userID int32) error {
	return s.err
}

func invokeRoomHandler(t *testing.T, stub *stubRoomService, method, path string, body string, roomID string, handler func(*APIV1Service) echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	s := &APIV1Service{RoomService: stub}

	e := echo.New()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(userIDContextKey, int32(1))
	if roomID != "" {
		c.SetParamNames("roomID")
		c.SetParamValues(roomID)
	}

	require.NoError(t, handler(s)(c))
	return rec
}

func TestListRoomsHandler(t *testing.T) {
	stub := &stubRoomService{rooms: []*room.RoomSummary{{ID: 1, Name: "general"}}}
	rec := invokeRoomHandler(t, stub, http.MethodGet, "/api/v1/rooms", "", "",
		func(s *APIV1Service) echo.HandlerFunc { return s.ListRooms })

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rooms"`)
	assert.Contains(t, rec.Body.String(), `"general"`)
}

func TestCreateRoomHandler(t *testing.T) {
	rec := invokeRoomHandler(t, &stubRoomService{}, http.MethodPost, "/api/v1/rooms",
		`{"name":"general"}`, "",
		func(s *APIV1Service) echo.HandlerFunc { return s.CreateRoom })

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "Room created successfully")
}

func TestCreateRoomHandlerMissingName(t *testing.T) {
	rec := invokeRoomHandler(t, &stubRoomService{}, http.MethodPost, "/api/v1/rooms",
		`{}`, "",
		func(s *APIV1Service) echo.HandlerFunc { return s.CreateRoom })

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Room name is required")
}

func TestJoinRoomHandlerFreshJoin(t *testing.T) {
	rec := invokeRoomHandler(t, &stubRoomService{}, http.MethodPost, "/api/v1/rooms/7/join", "", "7",
		func(s *APIV1Service) echo.HandlerFunc { return s.JoinRoom })

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "Joined room successfully")
}

func TestJoinRoomHandlerAlreadyJoined(t *testing.T) {
	rec := invokeRoomHandler(t, &stubRoomService{alreadyMember: true}, http.MethodPost, "/api/v1/rooms/7/join", "", "7",
		func(s *APIV1Service) echo.HandlerFunc { return s.JoinRoom })

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Already joined")
}

func TestJoinRoomHandlerNotFound(t *testing.T) {
	stub := &stubRoomService{err: svcerrors.NotFound("room not found")}
	rec := invokeRoomHandler(t, stub, http.MethodPost, "/api/v1/rooms/7/join", "", "7",
		func(s *APIV1Service) echo.HandlerFunc { return s.JoinRoom })

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeaveRoomHandlerNotMember(t *testing.T) {
	stub := &stubRoomService{err: svcerrors.NotMember("not a participant of this room")}
	rec := invokeRoomHandler(t, stub, http.MethodDelete, "/api/v1/rooms/7/leave", "", "7",
		func(s *APIV1Service) echo.HandlerFunc { return s.LeaveRoom })

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not a participant of this room")
}

func TestListParticipantsHandlerForbidden(t *testing.T) {
	stub := &stubRoomService{err: svcerrors.Forbidden("not a participant of this room")}
	rec := invokeRoomHandler(t, stub, http.MethodGet, "/api/v1/rooms/7/participants", "", "7",
		func(s *APIV1Service) echo.HandlerFunc { return s.ListRoomParticipants })

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access denied")
}

func TestListRoomsHandlerStoreFailure(t *testing.T) {
	stub := &stubRoomService{err: svcerrors.StoreFailure("boom", nil)}
	rec := invokeRoomHandler(t, stub, http.MethodGet, "/api/v1/rooms", "", "",
		func(s *APIV1Service) echo.HandlerFunc { return s.ListRooms })

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Internal detail never reaches the client.
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestWarmupCacheHandler(t *testing.T) {
	rec := invokeRoomHandler(t, &stubRoomService{}, http.MethodPost, "/api/v1/cache/warmup", "", "",
		func(s *APIV1Service) echo.HandlerFunc { return s.WarmupCache })

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cache warmed up successfully")
}

func TestPathIDInvalid(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("roomID")
	c.SetParamValues("abc")

	_, err := pathID(c, "roomID")
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}
