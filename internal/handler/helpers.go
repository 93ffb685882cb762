package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proctor-go-api/internal/middleware"
	"github.com/noah-isme/proctor-go-api/internal/observability"
	"github.com/noah-isme/proctor-go-api/internal/service"
	"github.com/noah-isme/proctor-go-api/internal/utils"
)

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := c.Params(name)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func parseQueryUint(c *fiber.Ctx, key string) (*uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, errors.New("invalid " + key)
	}
	result := uint(parsed)
	return &result, nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals(middleware.LocalUserID); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals(middleware.LocalUserRole); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func stringLocal(c *fiber.Ctx, key string) string {
	if v := c.Locals(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// requestContext collects the caller identity the middleware stashed in the
// request locals.
func requestContext(c *fiber.Ctx) service.RequestContext {
	return service.RequestContext{
		UserID:    userIDFromContext(c),
		Role:      userRoleFromContext(c),
		Roll:      stringLocal(c, middleware.LocalUserRoll),
		SessionID: stringLocal(c, middleware.LocalSessionID),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// accessDeniedResponse maps a gate denial to its HTTP status and a message
// the exam client can show directly.
func accessDeniedResponse(c *fiber.Ctx, accessErr *service.AccessError) error {
	observability.AccessDenials().WithLabelValues(string(accessErr.Reason)).Inc()

	status := fiber.StatusForbidden
	message := "access denied"

	switch accessErr.Reason {
	case service.AccessNotFound:
		status = fiber.StatusNotFound
		message = "exam not found"
	case service.AccessNotStarted:
		message = "exam has not started yet"
	case service.AccessWindowClosed:
		message = "exam window has closed"
	case service.AccessCodeRequired:
		status = fiber.StatusUnauthorized
		message = "access code required"
	case service.AccessNotAssigned:
		message = "exam is not assigned to you"
	case service.AccessAttemptLimitReached:
		message = "attempt limit reached"
	}

	return utils.SendError(c, status, message)
}
