// Package response writes the JSON envelope used by every HTTP endpoint:
// {"success": bool, "message": string, "data": any}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"food-delivery-platform/auth/internal/platform/autherr"
)

// Envelope is the body of every HTTP response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OK writes 200 with data.
func OK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created writes 201 with data.
func Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes an error envelope with an explicit status.
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Message: message})
}

// Error maps err to its HTTP status and caller-facing message.
func Error(c *gin.Context, err error) {
	Fail(c, autherr.HTTPStatus(err), autherr.Message(err))
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(autherr.HTTPStatus(err), Envelope{Success: false, Message: autherr.Message(err)})
}
