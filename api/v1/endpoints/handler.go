package endpoints

import (
	"ctn_registry/api/v1/middleware"
	"ctn_registry/internal/cache"
	"ctn_registry/internal/endpoint"
	"ctn_registry/internal/httpx"
	"ctn_registry/internal/ws"

	"github.com/gin-gonic/gin"
)

// VerifyTokenRequest represents the manual verification request body
type VerifyTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// ToggleRequest represents the activate/deactivate toggle body
type ToggleRequest struct {
	IsActive *bool   `json:"isActive" binding:"required"`
	Reason   *string `json:"reason"`
}

// Handler handles the endpoint lifecycle API
type Handler struct {
	svc *endpoint.Service
}

// NewHandler creates a new endpoints handler
func NewHandler(svc *endpoint.Service) *Handler {
	return &Handler{svc: svc}
}

// Register handles POST /api/v1/entities/:id/endpoints/register
func (h *Handler) Register(c *gin.Context) {
	var params endpoint.RegisterParams
	if err := c.ShouldBindJSON(&params); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
		return
	}

	ep, appErr := h.svc.Register(middleware.Actor(c), c.Param("id"), params)
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}
	httpx.Created(c, ep)
}

// List handles GET /api/v1/entities/:id/endpoints
func (h *Handler) List(c *gin.Context) {
	endpoints, appErr := h.svc.ListByEntity(middleware.Actor(c), c.Param("id"))
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}
	httpx.OK(c, endpoints)
}

// Get handles GET /api/v1/endpoints/:id
func (h *Handler) Get(c *gin.Context) {
	ep, appErr := h.svc.Get(middleware.Actor(c), c.Param("id"))
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}
	httpx.OK(c, ep)
}

// Delete handles DELETE /api/v1/endpoints/:id
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	if appErr := h.svc.Delete(middleware.Actor(c), id); appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}

	cache.InvalidateDirectory(c.Request.Context())
	ws.PublishDirectoryEvent("delete", gin.H{"id": id})
	httpx.OK(c, nil)
}

// SendVerification handles POST /api/v1/endpoints/:id/send-verification.
// The challenge round trip runs synchronously; the response reports both
// the endpoint state and the protocol outcome.
func (h *Handler) SendVerification(c *gin.Context) {
	ep, result, appErr := h.svc.SendVerification(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}
	httpx.OK(c, gin.H{
		"endpoint":     ep,
		"verification": result,
	})
}

// VerifyToken handles POST /api/v1/endpoints/:id/verify-token
func (h *Handler) VerifyToken(c *gin.Context) {
	var req VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamMissing("token is required"))
		return
	}

	ep, appErr := h.svc.VerifyToken(middleware.Actor(c), c.Param("id"), req.Token)
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}
	httpx.OK(c, ep)
}

// Test handles POST /api/v1/endpoints/:id/test. A failed probe is still a
// 200: the outcome is data, not an error.
func (h *Handler) Test(c *gin.Context) {
	outcome, appErr := h.svc.Test(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}
	httpx.OK(c, outcome)
}

// Activate handles POST /api/v1/endpoints/:id/activate
func (h *Handler) Activate(c *gin.Context) {
	ep, appErr := h.svc.Activate(middleware.Actor(c), c.Param("id"))
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}
	httpx.OK(c, ep)
}

// Toggle handles PATCH /api/v1/endpoints/:id/toggle
func (h *Handler) Toggle(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		httpx.FailErr(c, httpx.ErrParamMissing("isActive is required"))
		return
	}

	ep, appErr := h.svc.Toggle(middleware.Actor(c), c.Param("id"), *req.IsActive, req.Reason)
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}

	cache.InvalidateDirectory(c.Request.Context())
	httpx.OK(c, ep)
}

// Publish handles POST /api/v1/endpoints/:id/publish
func (h *Handler) Publish(c *gin.Context) {
	ep, appErr := h.svc.Publish(middleware.Actor(c), c.Param("id"))
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}

	cache.InvalidateDirectory(c.Request.Context())
	ws.PublishDirectoryEvent("add", ep)
	httpx.OK(c, ep)
}

// Unpublish handles POST /api/v1/endpoints/:id/unpublish
func (h *Handler) Unpublish(c *gin.Context) {
	ep, appErr := h.svc.Unpublish(middleware.Actor(c), c.Param("id"))
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}

	cache.InvalidateDirectory(c.Request.Context())
	ws.PublishDirectoryEvent("delete", gin.H{"id": ep.ID})
	httpx.OK(c, ep)
}
