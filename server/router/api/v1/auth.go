package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const userIDContextKey = "user-id"

// ClaimsMessage is the payload of an access token. The subject carries the
// user id; token issuance happens elsewhere, this service only verifies.
type ClaimsMessage struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// JWTAuthMiddleware verifies the bearer token and stores the caller's user id
// in the request context.
func (s *APIV1Service) JWTAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := extractBearerToken(c.Request().Header.Get("Authorization"))
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		userID, err := s.verifyAccessToken(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		c.Set(userIDContextKey, userID)
		return next(c)
	}
}

func (s *APIV1Service) verifyAccessToken(tokenString string) (int32, error) {
	claims := &ClaimsMessage{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigningMethod(t.Method.Alg())
		}
		return []byte(s.Secret), nil
	})
	if err != nil {
		return 0, err
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(userID), nil
}

func extractBearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), parts[1] != ""
}

type errUnexpectedSigningMethod string

func (e errUnexpectedSigningMethod) Error() string {
	return "unexpected signing method: " + string(e)
}

// currentUserID returns the authenticated caller's id set by the middleware.
func currentUserID(c echo.Context) (int32, bool) {
	userID, ok := c.Get(userIDContextKey).(int32)
	return userID, ok
}
