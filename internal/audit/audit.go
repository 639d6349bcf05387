package audit

import (
	"encoding/json"
	"strings"

	"ctn_registry/internal/authz"
	"ctn_registry/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Actions recorded by the lifecycle and workflow services. Authorization
// denials get their own action so security reviews can filter them out
// from ordinary failures.
const (
	ActionEndpointRegister     = "endpoint.register"
	ActionEndpointSendVerify   = "endpoint.send_verification"
	ActionEndpointVerifyToken  = "endpoint.verify_token"
	ActionEndpointTest         = "endpoint.test"
	ActionEndpointActivate     = "endpoint.activate"
	ActionEndpointToggle       = "endpoint.toggle"
	ActionEndpointPublish      = "endpoint.publish"
	ActionEndpointUnpublish    = "endpoint.unpublish"
	ActionEndpointDelete       = "endpoint.delete"
	ActionAccessRequest        = "access.request"
	ActionAccessApprove        = "access.approve"
	ActionAccessDeny           = "access.deny"
	ActionGrantRevoke          = "grant.revoke"
	ActionAuthzDenied          = "security.authz_denied"
)

// Recorder writes audit events. Writes are fire-and-forget: a failed audit
// insert is logged and swallowed so it never masks the primary result.
type Recorder struct {
	db     *gorm.DB
	logger *logrus.Entry
}

// NewRecorder creates an audit recorder
func NewRecorder(db *gorm.DB, logger *logrus.Entry) *Recorder {
	return &Recorder{db: db, logger: logger.WithField("component", "audit")}
}

// Record persists one audit event
func (r *Recorder) Record(actor authz.Actor, action, resourceType, resourceID, outcome string, detail map[string]any) {
	var detailJSON []byte
	if detail != nil {
		var err error
		detailJSON, err = json.Marshal(detail)
		if err != nil {
			r.logger.WithError(err).Warn("failed to marshal audit detail")
			detailJSON = nil
		}
	}

	event := model.AuditEvent{
		ActorEmail:   actor.Email,
		ActorRoles:   strings.Join(actor.Roles, ","),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Outcome:      outcome,
		Detail:       detailJSON,
	}

	if err := r.db.Create(&event).Error; err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"action":   action,
			"resource": resourceID,
		}).Error("failed to write audit event")
	}
}

// Denied records an authorization denial as a security-relevant event
func (r *Recorder) Denied(actor authz.Actor, action, resourceType, resourceID string) {
	r.Record(actor, ActionAuthzDenied, resourceType, resourceID, model.AuditOutcomeDenied, map[string]any{
		"attempted_action": action,
	})
}
