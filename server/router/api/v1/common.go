package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	svcerrors "github.com/hrygo/blubb/internal/errors"
)

// errorResponse maps a service error to its HTTP status and JSON body. Store
// failures are logged at the service layer; the client gets a generic 500.
func errorResponse(c echo.Context, err error) error {
	code := svcerrors.GetCodeFromError(err, svcerrors.ErrCodeStoreFailure)
	switch code {
	case svcerrors.ErrCodeNotFound:
		return c.JSON(http.StatusNotFound, map[string]string{"error": errorMessage(err, "not found")})
	case svcerrors.ErrCodeForbidden:
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Access denied"})
	case svcerrors.ErrCodeNotMember:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Not a participant of this room"})
	case svcerrors.ErrCodeAlreadyMember, svcerrors.ErrCodeConflict:
		return c.JSON(http.StatusConflict, map[string]string{"error": errorMessage(err, "conflict")})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}

func errorMessage(err error, fallback string) string {
	if svcErr, ok := err.(*svcerrors.ServiceError); ok && svcErr.Message != "" {
		return svcErr.Message
	}
	return fallback
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (int32, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return int32(id), nil
}
