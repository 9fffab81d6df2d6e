// Package response provides the JSON envelope and domain-error to HTTP
// status mapping used by all handlers.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Aalok376/GharBata-sub001/internal/domain"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type paginatedEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
}

// Success writes a 200 with the given payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// Created writes a 201 with the given payload.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, envelope{Success: true, Data: data})
}

// Paginated writes a 200 with items and page metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, paginatedEnvelope{
		Success: true,
		Data:    items,
		Total:   total,
		Page:    page,
		Limit:   limit,
	})
}

// BadRequest writes a 400 with the given message. Used for malformed
// request bodies before any domain code runs.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Error: message})
}

// Error maps a domain error onto its HTTP status and writes the envelope.
func Error(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err), domain.IsInvalidState(err):
		c.JSON(http.StatusBadRequest, envelope{Success: false, Error: err.Error()})
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, envelope{Success: false, Error: err.Error()})
	case domain.IsForbidden(err):
		c.JSON(http.StatusForbidden, envelope{Success: false, Error: err.Error()})
	case domain.IsConflict(err):
		c.JSON(http.StatusConflict, envelope{Success: false, Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, envelope{Success: false, Error: "internal server error"})
	}
}
