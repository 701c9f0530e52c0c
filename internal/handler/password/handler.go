package password

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/register-api/internal/handler"
	"github.com/jwalitptl/register-api/internal/model"
	"github.com/jwalitptl/register-api/internal/service/password"
)

type Handler struct {
	svc *password.Service
}

func NewHandler(svc *password.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	pw := r.Group("/password")
	{
		pw.GET("/requirements", h.Requirements)
		pw.POST("/check", h.Check)
		pw.POST("/match", h.Match)
	}
}

func (h *Handler) Requirements(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.svc.Requirements()))
}

func (h *Handler) Check(c *gin.Context) {
	var req model.PasswordCheckRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.svc.Check(&req)))
}

func (h *Handler) Match(c *gin.Context) {
	var req model.PasswordMatchRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.svc.Match(&req)))
}
