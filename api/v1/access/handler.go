package access

import (
	"ctn_registry/api/v1/middleware"
	"ctn_registry/internal/access"
	"ctn_registry/internal/httpx"
	"ctn_registry/internal/ws"

	"github.com/gin-gonic/gin"
)

// RequestAccessRequest represents the consumer's request body
type RequestAccessRequest struct {
	RequestedScopes []string `json:"requestedScopes"`
}

// ApproveRequest represents the provider's approval body
type ApproveRequest struct {
	ApprovedScopes []string `json:"approvedScopes"`
}

// DenyRequest represents the provider's denial body
type DenyRequest struct {
	Reason *string `json:"reason"`
}

// RevokeRequest represents the revocation body
type RevokeRequest struct {
	Reason *string `json:"reason"`
}

// Handler handles the access-grant workflow API
type Handler struct {
	svc *access.Service
}

// NewHandler creates a new access handler
func NewHandler(svc *access.Service) *Handler {
	return &Handler{svc: svc}
}

// Request handles POST /api/v1/endpoints/:id/request-access
func (h *Handler) Request(c *gin.Context) {
	// Body is optional; an absent body means default values
	var req RequestAccessRequest
	_ = c.ShouldBindJSON(&req)

	result, appErr := h.svc.RequestAccess(middleware.Actor(c), c.Param("id"), req.RequestedScopes)
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}

	if result.Grant != nil {
		ws.PublishGrantEvent("add", result.Grant)
	}
	httpx.Created(c, result)
}

// ListForEndpoint handles GET /api/v1/endpoints/:id/access-requests
func (h *Handler) ListForEndpoint(c *gin.Context) {
	requests, appErr := h.svc.ListForEndpoint(middleware.Actor(c), c.Param("id"))
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}
	httpx.OK(c, requests)
}

// Approve handles POST /api/v1/access-requests/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	// Body is optional; an absent body means default values
	var req ApproveRequest
	_ = c.ShouldBindJSON(&req)

	grant, appErr := h.svc.Approve(middleware.Actor(c), c.Param("id"), req.ApprovedScopes)
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}

	ws.PublishGrantEvent("add", grant)
	httpx.OK(c, grant)
}

// Deny handles POST /api/v1/access-requests/:id/deny
func (h *Handler) Deny(c *gin.Context) {
	// Body is optional; an absent body means default values
	var req DenyRequest
	_ = c.ShouldBindJSON(&req)

	request, appErr := h.svc.Deny(middleware.Actor(c), c.Param("id"), req.Reason)
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}
	httpx.OK(c, request)
}

// MyGrants handles GET /api/v1/my-access-grants
func (h *Handler) MyGrants(c *gin.Context) {
	grants, appErr := h.svc.MyGrants(middleware.Actor(c))
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}
	httpx.OK(c, grants)
}

// Revoke handles POST /api/v1/grants/:id/revoke
func (h *Handler) Revoke(c *gin.Context) {
	// Body is optional; an absent body means default values
	var req RevokeRequest
	_ = c.ShouldBindJSON(&req)

	grant, appErr := h.svc.RevokeGrant(middleware.Actor(c), c.Param("id"), req.Reason)
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}

	ws.PublishGrantEvent("delete", gin.H{"id": grant.ID})
	httpx.OK(c, grant)
}
