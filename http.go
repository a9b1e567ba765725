package tasks

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// APIResponse is the envelope every JSON endpoint answers with.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// RespondOK writes a success envelope with an optional message.
func RespondOK(c *fiber.Ctx, data any, message string) error {
	return c.Status(fiber.StatusOK).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// RespondCreated writes a 201 success envelope.
func RespondCreated(c *fiber.Ctx, data any, message string) error {
	return c.Status(fiber.StatusCreated).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// RespondError folds any error into the envelope. Rich errors map
// their category onto an HTTP status; anything else is treated as an
// internal failure and answered with a stable message so storage or
// driver detail never reaches the client.
func RespondError(c *fiber.Ctx, logger Logger, err error) error {
	if logger == nil {
		logger = defLogger{}
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := fiber.StatusInternalServerError
	message := "Internal server error"

	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict:
		status = fiber.StatusBadRequest
		message = richErr.Message
	case goerrors.CategoryAuth:
		status = fiber.StatusUnauthorized
		message = richErr.Message
	case goerrors.CategoryAuthz:
		status = fiber.StatusForbidden
		message = richErr.Message
	case goerrors.CategoryNotFound:
		status = fiber.StatusNotFound
		message = richErr.Message
	default:
		logger.Error("request failed",
			"error", richErr.Message,
			"category", richErr.Category,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
	}

	return c.Status(status).JSON(APIResponse{
		Success: false,
		Error:   message,
	})
}

// ClaimsFromContext pulls the token claims the middleware stored on
// the request.
func ClaimsFromContext(c *fiber.Ctx, key string) (AuthClaims, error) {
	local := c.Locals(key)
	if local == nil {
		return nil, goerrors.New("missing session claims", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}

	claims, ok := local.(AuthClaims)
	if !ok {
		return nil, goerrors.New("unable to map session claims", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}

	return claims, nil
}
