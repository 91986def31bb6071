package rest

import (
	"blurrer/api/model"
	apperrors "blurrer/shared/errors"
	"blurrer/shared/log"
	"errors"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"net/http"
)

// ErrorHandler turns every error returned by a handler into a JSON body with
// a status matching its kind.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := http.StatusInternalServerError
		body := model.ErrorResponse{RequestID: requestID(c)}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
			body.Error = errorName(status)
			body.Message = fe.Message
		} else {
			kind := apperrors.KindOf(err)
			status = apperrors.HTTPStatus(kind)
			body.Error = string(kind)
			body.Message = apperrors.Message(err)
		}

		if status >= http.StatusInternalServerError {
			log.WithRequestID(log.LoggerWithTrace(c.UserContext(), logger), body.RequestID).
				Error("Request failed", zap.Int("status", status), zap.Error(err))
		}

		return c.Status(status).JSON(body)
	}
}

func errorName(status int) string {
	switch {
	case status == http.StatusRequestEntityTooLarge:
		return "too_large"
	case status == http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status < http.StatusInternalServerError:
		return string(apperrors.KindInput)
	default:
		return string(apperrors.KindInternal)
	}
}
