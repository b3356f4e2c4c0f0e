package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/neuroqbank/qbank_server/internal/auth"
)

// RequestLogger attaches a request-scoped zerolog logger (with a request id)
// to the request context and logs one line per request.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID := uuid.NewString()
			logger := log.With().
				Str("reqID", reqID).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Logger()
			ctx := logger.WithContext(c.Request().Context())
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set("X-Request-Id", reqID)

			err := next(c)
			if err != nil {
				logger.Err(err).Msg("request-errored")
			} else {
				logger.Info().Int("status", c.Response().Status).Msg("request-handled")
			}
			return err
		}
	}
}

// JWTAuth verifies a Bearer token and stores the authenticated user in the
// request context. Requests without a valid token never reach a handler.
func JWTAuth(secretKey []byte, issuer string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "no auth method")
			}
			ctx, err := authenticateJWT(c, authHeader, secretKey, issuer)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func authenticateJWT(c echo.Context, authHeader string, secretKey []byte, issuer string) (ctx context.Context, err error) {
	userToken := strings.TrimPrefix(authHeader, "Bearer ")
	token, err := jwt.Parse(userToken, func(token *jwt.Token) (interface{}, error) {
		// Ensure the signing method is HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil {
		log.Err(err).Msg("err-parsing-token")
		return nil, errors.New("could not parse token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("could not parse token claims")
	}

	uidStr, ok := claims["sub"].(string)
	if !ok {
		return nil, errors.New("could not parse uid claim")
	}
	uid, err := strconv.ParseInt(uidStr, 10, 64)
	if err != nil {
		return nil, errors.New("could not parse uid as an integer")
	}

	iss, ok := claims["iss"].(string)
	if !ok || iss != issuer {
		return nil, errors.New("unexpected iss claim")
	}

	usn, ok := claims["usn"].(string)
	if !ok || usn == "" {
		return nil, errors.New("unexpected usn claim")
	}

	return auth.StoreUserInContext(c.Request().Context(), uid, usn), nil
}
