package access

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ctn_registry/internal/audit"
	"ctn_registry/internal/authz"
	"ctn_registry/internal/httpx"
	"ctn_registry/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	resourceAccessRequest = "access_request"
	resourceGrant         = "consumer_grant"
)

// errStatePreempted aborts a transaction whose guarded UPDATE matched no
// rows: a concurrent caller already performed the transition.
var errStatePreempted = errors.New("state transition preempted")

// Service manages the access-request / consumer-grant workflow between
// data consumers and providers of published endpoints.
type Service struct {
	db      *gorm.DB
	guard   *authz.Guard
	auditor *audit.Recorder
	logger  *logrus.Entry
}

// NewService creates the access workflow service
func NewService(db *gorm.DB, guard *authz.Guard, auditor *audit.Recorder, logger *logrus.Entry) *Service {
	return &Service{
		db:      db,
		guard:   guard,
		auditor: auditor,
		logger:  logger.WithField("component", "access-service"),
	}
}

// RequestResult is returned from RequestAccess; Grant is non-nil only for
// auto-approved open-access endpoints.
type RequestResult struct {
	Request *model.AccessRequest `json:"request"`
	Grant   *model.ConsumerGrant `json:"grant,omitempty"`
}

// RequestAccess files a consumer's request against a published endpoint.
// Open-access endpoints auto-approve: the approved request and the active
// grant are committed in one transaction, so no pending state is ever
// externally observable.
func (s *Service) RequestAccess(actor authz.Actor, endpointID string, scopes []string) (*RequestResult, *httpx.AppError) {
	consumerID, err := s.guard.ResolveEntity(actor)
	if err != nil {
		return nil, httpx.ErrDatabaseError("", err)
	}
	if consumerID == "" {
		return nil, httpx.ErrNoEntity("")
	}

	var ep model.Endpoint
	err = s.db.Where("id = ? AND is_deleted = ? AND publication_status = ? AND is_active = ?",
		endpointID, false, model.PublicationStatusPublished, true).
		First(&ep).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.ErrNotFound("endpoint not found")
		}
		return nil, httpx.ErrDatabaseError("", err)
	}

	if ep.LegalEntityID == consumerID {
		return nil, httpx.ErrParamInvalid("cannot request access to your own endpoint")
	}

	var pending int64
	err = s.db.Model(&model.AccessRequest{}).
		Where("endpoint_id = ? AND consumer_entity_id = ? AND is_deleted = ? AND status = ?",
			endpointID, consumerID, false, model.AccessRequestStatusPending).
		Count(&pending).Error
	if err != nil {
		return nil, httpx.ErrDatabaseError("", err)
	}
	if pending > 0 {
		return nil, httpx.ErrStateConflict("you already have a pending request for this endpoint")
	}

	var approved int64
	err = s.db.Model(&model.AccessRequest{}).
		Where("endpoint_id = ? AND consumer_entity_id = ? AND is_deleted = ? AND status = ?",
			endpointID, consumerID, false, model.AccessRequestStatusApproved).
		Count(&approved).Error
	if err != nil {
		return nil, httpx.ErrDatabaseError("", err)
	}
	if approved > 0 {
		return nil, httpx.ErrStateConflict("your access request for this endpoint is already approved")
	}

	var activeGrants int64
	err = s.db.Model(&model.ConsumerGrant{}).
		Where("endpoint_id = ? AND consumer_entity_id = ? AND is_active = ?",
			endpointID, consumerID, true).
		Count(&activeGrants).Error
	if err != nil {
		return nil, httpx.ErrDatabaseError("", err)
	}
	if activeGrants > 0 {
		return nil, httpx.ErrStateConflict("you already hold an active grant for this endpoint")
	}

	scopesJSON, err := json.Marshal(scopes)
	if err != nil {
		return nil, httpx.ErrInternalError("failed to encode scopes", err)
	}

	now := time.Now()
	request := model.AccessRequest{
		ID:               uuid.NewString(),
		EndpointID:       endpointID,
		ConsumerEntityID: consumerID,
		ProviderEntityID: ep.LegalEntityID,
		Status:           model.AccessRequestStatusPending,
		RequestedScopes:  scopesJSON,
		RequestedAt:      now,
	}

	result := &RequestResult{Request: &request}

	if ep.AccessModel == model.AccessModelOpen {
		decidedBy := model.DecidedByAutoApproved
		request.Status = model.AccessRequestStatusApproved
		request.ApprovedScopes = scopesJSON
		request.DecidedAt = &now
		request.DecidedBy = &decidedBy

		grant := model.ConsumerGrant{
			ID:               uuid.NewString(),
			AccessRequestID:  request.ID,
			EndpointID:       endpointID,
			ConsumerEntityID: consumerID,
			GrantedScopes:    scopesJSON,
			IsActive:         true,
			GrantedAt:        now,
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&request).Error; err != nil {
				return err
			}
			return tx.Create(&grant).Error
		})
		if err != nil {
			return nil, httpx.ErrDatabaseError("", err)
		}
		result.Grant = &grant
	} else {
		if err := s.db.Create(&request).Error; err != nil {
			return nil, httpx.ErrDatabaseError("", err)
		}
	}

	s.auditor.Record(actor, audit.ActionAccessRequest, resourceAccessRequest, request.ID, model.AuditOutcomeSuccess, map[string]any{
		"endpoint_id":  endpointID,
		"access_model": ep.AccessModel,
		"status":       request.Status,
	})
	return result, nil
}

// ListForEndpoint returns the provider's inbox for one endpoint
func (s *Service) ListForEndpoint(actor authz.Actor, endpointID string) ([]model.AccessRequest, *httpx.AppError) {
	var ep model.Endpoint
	err := s.db.Where("id = ? AND is_deleted = ?", endpointID, false).First(&ep).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.ErrNotFound("endpoint not found")
		}
		return nil, httpx.ErrDatabaseError("", err)
	}

	ok, err := s.guard.CanAccess(actor, ep.LegalEntityID)
	if err != nil {
		return nil, httpx.ErrDatabaseError("", err)
	}
	if !ok {
		s.auditor.Denied(actor, "access.list", resourceAccessRequest, endpointID)
		return nil, httpx.ErrNotFound("endpoint not found")
	}

	var requests []model.AccessRequest
	err = s.db.Where("endpoint_id = ? AND is_deleted = ?", endpointID, false).
		Order("requested_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, httpx.ErrDatabaseError("", err)
	}
	return requests, nil
}

// Approve grants a pending request. The status flip is state-guarded and
// the grant creation rides the same transaction.
func (s *Service) Approve(actor authz.Actor, requestID string, approvedScopes []string) (*model.ConsumerGrant, *httpx.AppError) {
	request, appErr := s.loadRequest(actor, requestID, audit.ActionAccessApprove)
	if appErr != nil {
		return nil, appErr
	}

	if request.Status != model.AccessRequestStatusPending {
		return nil, httpx.ErrStateConflict(fmt.Sprintf("request is not pending (status=%s)", request.Status))
	}

	scopesJSON := request.RequestedScopes
	if approvedScopes != nil {
		var err error
		scopesJSON, err = json.Marshal(approvedScopes)
		if err != nil {
			return nil, httpx.ErrInternalError("failed to encode scopes", err)
		}
	}

	now := time.Now()
	grant := model.ConsumerGrant{
		ID:               uuid.NewString(),
		AccessRequestID:  request.ID,
		EndpointID:       request.EndpointID,
		ConsumerEntityID: request.ConsumerEntityID,
		GrantedScopes:    scopesJSON,
		IsActive:         true,
		GrantedAt:        now,
	}

	var conflict bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.AccessRequest{}).
			Where("id = ? AND status = ?", request.ID, model.AccessRequestStatusPending).
			Updates(map[string]any{
				"status":          model.AccessRequestStatusApproved,
				"approved_scopes": scopesJSON,
				"decided_at":      now,
				"decided_by":      actor.Email,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			conflict = true
			return errStatePreempted
		}
		return tx.Create(&grant).Error
	})
	if err != nil {
		if conflict {
			// A concurrent decision landed first
			return nil, httpx.ErrStateConflict("request is no longer pending")
		}
		return nil, httpx.ErrDatabaseError("", err)
	}

	s.auditor.Record(actor, audit.ActionAccessApprove, resourceAccessRequest, request.ID, model.AuditOutcomeSuccess, map[string]any{
		"grant_id":    grant.ID,
		"endpoint_id": request.EndpointID,
	})
	return &grant, nil
}

// Deny refuses a pending request with an optional reason
func (s *Service) Deny(actor authz.Actor, requestID string, reason *string) (*model.AccessRequest, *httpx.AppError) {
	request, appErr := s.loadRequest(actor, requestID, audit.ActionAccessDeny)
	if appErr != nil {
		return nil, appErr
	}

	if request.Status != model.AccessRequestStatusPending {
		return nil, httpx.ErrStateConflict(fmt.Sprintf("request is not pending (status=%s)", request.Status))
	}

	res := s.db.Model(&model.AccessRequest{}).
		Where("id = ? AND status = ?", request.ID, model.AccessRequestStatusPending).
		Updates(map[string]any{
			"status":        model.AccessRequestStatusDenied,
			"decided_at":    time.Now(),
			"decided_by":    actor.Email,
			"denial_reason": reason,
		})
	if res.Error != nil {
		return nil, httpx.ErrDatabaseError("", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, httpx.ErrStateConflict("request is no longer pending")
	}

	s.auditor.Record(actor, audit.ActionAccessDeny, resourceAccessRequest, request.ID, model.AuditOutcomeSuccess, nil)

	var updated model.AccessRequest
	if err := s.db.Where("id = ?", request.ID).First(&updated).Error; err != nil {
		return nil, httpx.ErrDatabaseError("", err)
	}
	return &updated, nil
}

// MyGrants lists the consumer's grants (active and revoked)
func (s *Service) MyGrants(actor authz.Actor) ([]model.ConsumerGrant, *httpx.AppError) {
	consumerID, err := s.guard.ResolveEntity(actor)
	if err != nil {
		return nil, httpx.ErrDatabaseError("", err)
	}
	if consumerID == "" {
		return nil, httpx.ErrNoEntity("")
	}

	var grants []model.ConsumerGrant
	err = s.db.Where("consumer_entity_id = ?", consumerID).
		Order("granted_at DESC").
		Find(&grants).Error
	if err != nil {
		return nil, httpx.ErrDatabaseError("", err)
	}
	return grants, nil
}

// RevokeGrant deactivates a grant. The caller must be the grant's consumer,
// the endpoint's provider, or an admin. The grant flip and the originating
// request's revoked status commit as one transaction; a revoked grant is
// terminal.
func (s *Service) RevokeGrant(actor authz.Actor, grantID string, reason *string) (*model.ConsumerGrant, *httpx.AppError) {
	var grant model.ConsumerGrant
	err := s.db.Where("id = ?", grantID).First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.ErrNotFound("grant not found")
		}
		return nil, httpx.ErrDatabaseError("", err)
	}

	allowed, appErr := s.canRevoke(actor, &grant)
	if appErr != nil {
		return nil, appErr
	}
	if !allowed {
		s.auditor.Denied(actor, audit.ActionGrantRevoke, resourceGrant, grant.ID)
		return nil, httpx.ErrNotFound("grant not found")
	}

	if !grant.IsActive {
		return nil, httpx.ErrStateConflict("grant is already revoked")
	}

	now := time.Now()
	var conflict bool
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ConsumerGrant{}).
			Where("id = ? AND is_active = ?", grant.ID, true).
			Updates(map[string]any{
				"is_active":         false,
				"revoked_at":        now,
				"revoked_by":        actor.Email,
				"revocation_reason": reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			conflict = true
			return errStatePreempted
		}

		return tx.Model(&model.AccessRequest{}).
			Where("id = ?", grant.AccessRequestID).
			Update("status", model.AccessRequestStatusRevoked).Error
	})
	if err != nil {
		if conflict {
			return nil, httpx.ErrStateConflict("grant is already revoked")
		}
		return nil, httpx.ErrDatabaseError("", err)
	}

	s.auditor.Record(actor, audit.ActionGrantRevoke, resourceGrant, grant.ID, model.AuditOutcomeSuccess, map[string]any{
		"access_request_id": grant.AccessRequestID,
		"endpoint_id":       grant.EndpointID,
	})

	var updated model.ConsumerGrant
	if err := s.db.Where("id = ?", grant.ID).First(&updated).Error; err != nil {
		return nil, httpx.ErrDatabaseError("", err)
	}
	return &updated, nil
}

// canRevoke implements the three-way revocation rule: admin, consumer
// entity member, or the endpoint provider's member.
func (s *Service) canRevoke(actor authz.Actor, grant *model.ConsumerGrant) (bool, *httpx.AppError) {
	if actor.IsAdmin() {
		return true, nil
	}

	ok, err := s.guard.CanAccess(actor, grant.ConsumerEntityID)
	if err != nil {
		return false, httpx.ErrDatabaseError("", err)
	}
	if ok {
		return true, nil
	}

	var ep model.Endpoint
	err = s.db.Where("id = ?", grant.EndpointID).First(&ep).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, httpx.ErrDatabaseError("", err)
	}

	ok, err = s.guard.CanAccess(actor, ep.LegalEntityID)
	if err != nil {
		return false, httpx.ErrDatabaseError("", err)
	}
	return ok, nil
}

// loadRequest fetches a live request and checks the provider-side guard
func (s *Service) loadRequest(actor authz.Actor, requestID, action string) (*model.AccessRequest, *httpx.AppError) {
	var request model.AccessRequest
	err := s.db.Where("id = ? AND is_deleted = ?", requestID, false).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.ErrNotFound("access request not found")
		}
		return nil, httpx.ErrDatabaseError("", err)
	}

	ok, err := s.guard.CanAccess(actor, request.ProviderEntityID)
	if err != nil {
		return nil, httpx.ErrDatabaseError("", err)
	}
	if !ok {
		s.auditor.Denied(actor, action, resourceAccessRequest, request.ID)
		return nil, httpx.ErrNotFound("access request not found")
	}
	return &request, nil
}
