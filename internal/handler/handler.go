package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/register-api/pkg/errors"
)

// BindJSON binds the request body into v. On failure the error is attached
// to the context for the validation and error middleware to render, and the
// handler should return.
func BindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		_ = c.Error(apperrors.BadRequest("invalid request", err))
		c.Abort()
		return false
	}
	return true
}

// Fail attaches err to the context and stops the chain.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
