package response

import (
	"errors"
	"net/http"

	"github.com/cityperks/service-redemption/internal/domain"
	"github.com/gin-gonic/gin"
)

// Success writes a 200 response with the payload under "data".
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// Created writes a 201 response with the payload under "data".
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

// Paginated writes a 200 response with pagination metadata.
func Paginated(c *gin.Context, data interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"data":  data,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// BadRequest writes a 400 response with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// Error translates a classified domain error into the appropriate HTTP
// response. Unclassified errors never leak details to the caller.
func Error(c *gin.Context, err error) {
	switch {
	case domain.IsKind(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": message(err)})
	case domain.IsKind(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": message(err)})
	case domain.IsKind(err, domain.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": message(err)})
	case domain.IsKind(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": message(err)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// message extracts the caller-safe message from a DomainError.
func message(err error) string {
	var domErr *domain.DomainError
	if errors.As(err, &domErr) {
		return domErr.Message
	}
	return err.Error()
}
