// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/amirphl/inox-pricing/app/dto"
	"github.com/amirphl/inox-pricing/app/middleware"
	businessflow "github.com/amirphl/inox-pricing/business_flow"
	"github.com/amirphl/inox-pricing/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

func ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindAndValidate decodes the JSON body into req and runs struct validation.
// It writes the error response itself and reports whether the handler may continue.
func bindAndValidate(c fiber.Ctx, v *validator.Validate, req any) (bool, error) {
	if err := c.Bind().JSON(req); err != nil {
		return false, ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", nil)
	}
	if err := v.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return false, ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", nil)
		}
		details := make([]fiber.Map, 0, len(fieldErrors))
		for _, e := range fieldErrors {
			details = append(details, fiber.Map{
				"field":  e.Field(),
				"reason": getValidationErrorMessage(e),
			})
		}
		return false, ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", details)
	}
	return true, nil
}

// businessErrorResponse maps a flow error to its HTTP status. Details never carry rule values.
func businessErrorResponse(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	var be *businessflow.BusinessError
	if !errors.As(err, &be) {
		return ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
	}

	switch be.Code {
	case businessflow.CodePricingValidationFailed:
		var details any
		if field, reason, ok := be.ValidationDetails(); ok {
			details = fiber.Map{"field": field, "reason": reason}
		}
		return ErrorResponse(c, fiber.StatusBadRequest, be.Message, be.Code, details)
	case businessflow.CodeInquiryCaptchaFailed:
		return ErrorResponse(c, fiber.StatusBadRequest, be.Message, be.Code, nil)
	case businessflow.CodePricingConfigUnavailable, businessflow.CodeSheetRulesUnavailable:
		var details any
		if field, ok := be.ConfigField(); ok {
			details = fiber.Map{"field": field}
		}
		return ErrorResponse(c, fiber.StatusServiceUnavailable, be.Message, be.Code, details)
	case businessflow.CodeInquiryNotificationFailed:
		return ErrorResponse(c, fiber.StatusBadGateway, be.Message, be.Code, nil)
	default:
		return ErrorResponse(c, fiber.StatusInternalServerError, be.Message, be.Code, nil)
	}
}

// createRequestContextWithTimeout carries request metadata into the flows
func createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestid.FromContext(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	return ctx, cancel
}

func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestid.FromContext(c))
	return metadata
}

func isPrivileged(c fiber.Ctx) bool {
	return middleware.IsPrivileged(c)
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "required_if":
		return err.Field() + " is required when " + err.Param()
	case "email":
		return "Invalid email format"
	case "uuid":
		return err.Field() + " must be a UUID"
	case "min":
		if isNumeric(err) {
			return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		}
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		if isNumeric(err) {
			return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		}
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

func isNumeric(err validator.FieldError) bool {
	switch err.Kind().String() {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64", "float32", "float64":
		return true
	}
	return false
}
