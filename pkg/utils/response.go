package utils

import (
	"github.com/gofiber/fiber/v2"
)

// Response envelope ของทุก JSON response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeTooLarge      = "PAYLOAD_TOO_LARGE"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeBadGateway    = "BAD_GATEWAY"
	ErrCodeUnavailable   = "SERVICE_UNAVAILABLE"
)

type statusDefault struct {
	code    string
	message string
}

var statusDefaults = map[int]statusDefault{
	fiber.StatusBadRequest:            {ErrCodeBadRequest, "Bad request"},
	fiber.StatusUnauthorized:          {ErrCodeUnauthorized, "Unauthorized"},
	fiber.StatusForbidden:             {ErrCodeForbidden, "Forbidden"},
	fiber.StatusNotFound:              {ErrCodeNotFound, "Resource not found"},
	fiber.StatusConflict:              {ErrCodeConflict, "Conflict"},
	fiber.StatusRequestEntityTooLarge: {ErrCodeTooLarge, "Payload too large"},
	fiber.StatusInternalServerError:   {ErrCodeInternalError, "Internal server error"},
	fiber.StatusBadGateway:            {ErrCodeBadGateway, "Upstream storage error"},
	fiber.StatusServiceUnavailable:    {ErrCodeUnavailable, "Service temporarily unavailable"},
}

// ErrorCodeForStatus error code ของ HTTP status (status ที่ไม่รู้จักใช้ BAD_REQUEST / INTERNAL_ERROR)
func ErrorCodeForStatus(status int) string {
	if d, ok := statusDefaults[status]; ok {
		return d.code
	}
	if status >= fiber.StatusInternalServerError {
		return ErrCodeInternalError
	}
	return ErrCodeBadRequest
}

// ========== Success ==========

func SuccessResponse(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusOK).JSON(Response{Success: true, Data: data})
}

func CreatedResponse(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Response{Success: true, Data: data})
}

func AcceptedResponse(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusAccepted).JSON(Response{Success: true, Data: data})
}

func NoContentResponse(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// NewMeta page ต้อง normalize มาแล้ว (เริ่มที่ 1)
func NewMeta(total int64, page, limit int) Meta {
	if limit < 1 {
		limit = 1
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	if totalPages < 1 {
		totalPages = 1
	}
	return Meta{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

func PaginatedSuccessResponse(c *fiber.Ctx, data any, total int64, page, limit int) error {
	meta := NewMeta(total, page, limit)
	return c.Status(fiber.StatusOK).JSON(Response{Success: true, Data: data, Meta: &meta})
}

// ========== Errors ==========

func ErrorResponse(c *fiber.Ctx, status int, code, message string, details any) error {
	return c.Status(status).JSON(Response{
		Error: &ErrorInfo{Code: code, Message: message, Details: details},
	})
}

// StatusErrorResponse ใช้ code และ message default ของ status เมื่อ message ว่าง
func StatusErrorResponse(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = statusDefaults[status].message
	}
	return ErrorResponse(c, status, ErrorCodeForStatus(status), message, nil)
}

func ValidationErrorResponse(c *fiber.Ctx, details any) error {
	return ErrorResponse(c, fiber.StatusBadRequest, ErrCodeValidation, "Validation failed", details)
}

func BadRequestResponse(c *fiber.Ctx, message string) error {
	return StatusErrorResponse(c, fiber.StatusBadRequest, message)
}

func UnauthorizedResponse(c *fiber.Ctx, message string) error {
	return StatusErrorResponse(c, fiber.StatusUnauthorized, message)
}

func ForbiddenResponse(c *fiber.Ctx, message string) error {
	return StatusErrorResponse(c, fiber.StatusForbidden, message)
}

func NotFoundResponse(c *fiber.Ctx, message string) error {
	return StatusErrorResponse(c, fiber.StatusNotFound, message)
}

func ConflictResponse(c *fiber.Ctx, message string) error {
	return StatusErrorResponse(c, fiber.StatusConflict, message)
}

func PayloadTooLargeResponse(c *fiber.Ctx, message string) error {
	return StatusErrorResponse(c, fiber.StatusRequestEntityTooLarge, message)
}

func InternalServerErrorResponse(c *fiber.Ctx) error {
	return StatusErrorResponse(c, fiber.StatusInternalServerError, "")
}

// ServiceUnavailableResponse provider ภายนอก (storage, queue) ล่ม caller retry ได้
func ServiceUnavailableResponse(c *fiber.Ctx, message string) error {
	c.Set(fiber.HeaderRetryAfter, "5")
	return StatusErrorResponse(c, fiber.StatusServiceUnavailable, message)
}
