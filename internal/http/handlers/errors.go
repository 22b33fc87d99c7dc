package handlers

import (
	"errors"

	"github.com/campaign-vault/backend/internal/apperrors"
	"github.com/campaign-vault/backend/internal/http/dto"
	"github.com/campaign-vault/backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// writeError maps a service error onto a status code and JSON body. Caller
// mistakes keep their detail; anything else is logged and reported as a bare
// internal error.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	reqID := middleware.GetRequestID(c)
	resp := dto.ErrorResponse{Error: err.Error(), RequestID: reqID}

	switch {
	case errors.Is(err, apperrors.ErrFileTooLarge):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(resp)
	case apperrors.IsValidation(err):
		resp.Details = validationDetails(err)
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	case apperrors.IsDuplicateName(err):
		return c.Status(fiber.StatusConflict).JSON(resp)
	case apperrors.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(resp)
	}

	log.Error("request failed",
		zap.String("request_id", reqID),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	msg := "internal server error"
	if apperrors.IsDecryption(err) {
		msg = "stored data could not be decrypted"
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: msg, RequestID: reqID})
}

func validationDetails(err error) fiber.Map {
	var (
		me *apperrors.MappingError
		ce *apperrors.MalformedCSVError
		re *apperrors.RowTransformError
		ie *apperrors.InvalidInputError
	)
	switch {
	case errors.As(err, &me):
		return fiber.Map{"kind": me.Kind, "field": me.Field, "header": me.Header}
	case errors.As(err, &ce):
		return fiber.Map{"kind": "malformed_csv", "line": ce.Line, "reason": ce.Reason}
	case errors.As(err, &re):
		return fiber.Map{"kind": "row_transform", "row": re.RowIndex, "reason": re.Reason}
	case errors.As(err, &ie):
		return fiber.Map{"kind": "invalid_input", "field": ie.Field}
	}
	return nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)})
}
