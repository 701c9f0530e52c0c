package key

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/register-api/internal/handler"
	"github.com/jwalitptl/register-api/internal/keygen"
	"github.com/jwalitptl/register-api/internal/model"
	"github.com/jwalitptl/register-api/internal/service/key"
	apperrors "github.com/jwalitptl/register-api/pkg/errors"
)

const defaultHostname = "register"

type Handler struct {
	svc *key.Service
}

func NewHandler(svc *key.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	k := r.Group("/key")
	{
		k.GET("", h.Get)
		k.GET("/generate", h.Generate)
		k.POST("/qr", h.QRCode)
	}
}

// Generate answers with a bare JSON array of words so another instance can
// use this one as its word service.
func (h *Handler) Generate(c *gin.Context) {
	k, err := h.svc.Generate(c.Request.Context())
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, k.Words)
}

// Get returns the whole key. ?local=true skips the word service.
func (h *Handler) Get(c *gin.Context) {
	local, err := strconv.ParseBool(c.DefaultQuery("local", "false"))
	if err != nil {
		handler.Fail(c, apperrors.BadRequest("local must be a boolean", err))
		return
	}

	var k keygen.Key
	if local {
		k, err = h.svc.Regenerate()
	} else {
		k, err = h.svc.Generate(c.Request.Context())
	}
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(k))
}

// QRCode renders the seed as a PNG download named after the hostname.
func (h *Handler) QRCode(c *gin.Context) {
	var req model.KeyQRRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	data, err := h.svc.QRCode(req.Seed)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	hostname := req.Hostname
	if hostname == "" {
		hostname = defaultHostname
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-encryption-key.png"`, hostname))
	c.Data(http.StatusOK, "image/png", data)
}

// ValidateMnemonic backs the "mnemonic" binding tag.
func ValidateMnemonic(fl validator.FieldLevel) bool {
	return keygen.ValidPhrase(fl.Field().String())
}
