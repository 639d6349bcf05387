package endpoint

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ctn_registry/internal/audit"
	"ctn_registry/internal/authz"
	"ctn_registry/internal/httpx"
	"ctn_registry/internal/model"
	"ctn_registry/internal/urlcheck"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	verificationTTL = 24 * time.Hour

	resourceEndpoint = "endpoint"
)

// Service owns the endpoint lifecycle: registration, verification,
// connectivity testing, activation, and directory publication. Every
// conditional transition is a single atomic UPDATE guarded by the expected
// current state, so concurrent callers get at-most-once semantics.
type Service struct {
	db       *gorm.DB
	guard    *authz.Guard
	verifier *Verifier
	tester   *Tester
	auditor  *audit.Recorder
	logger   *logrus.Entry
}

// NewService creates the endpoint lifecycle service
func NewService(db *gorm.DB, guard *authz.Guard, auditor *audit.Recorder, logger *logrus.Entry) *Service {
	return &Service{
		db:       db,
		guard:    guard,
		verifier: NewVerifier(),
		tester:   NewTester(),
		auditor:  auditor,
		logger:   logger.WithField("component", "endpoint-service"),
	}
}

// RegisterParams are the caller-supplied fields for a new endpoint
type RegisterParams struct {
	Name         string  `json:"endpointName"`
	URL          string  `json:"endpointUrl"`
	Description  *string `json:"description"`
	EndpointType *string `json:"endpointType"`
	DataCategory *string `json:"dataCategory"`
	AuthMethod   *string `json:"authMethod"`
	AccessModel  string  `json:"accessModel"`
}

// Register validates and inserts a new endpoint in PENDING/draft state
func (s *Service) Register(actor authz.Actor, entityID string, params RegisterParams) (*model.Endpoint, *httpx.AppError) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, httpx.ErrParamMissing("endpoint_name is required")
	}
	if strings.TrimSpace(params.URL) == "" {
		return nil, httpx.ErrParamMissing("endpoint_url is required")
	}

	// Registration is stricter than the generic safety filter: only https
	u, err := url.Parse(params.URL)
	if err != nil || !strings.EqualFold(u.Scheme, "https") {
		return nil, httpx.ErrParamInvalid("endpoint_url must use the https scheme")
	}
	if result := urlcheck.Classify(params.URL); !result.Safe {
		return nil, httpx.ErrUnsafeURL(result.Reason)
	}

	accessModel := params.AccessModel
	if accessModel == "" {
		accessModel = model.AccessModelRestricted
	}
	switch accessModel {
	case model.AccessModelOpen, model.AccessModelRestricted, model.AccessModelPrivate:
	default:
		return nil, httpx.ErrParamInvalid(fmt.Sprintf("unknown access_model: %s", accessModel))
	}

	var entity model.LegalEntity
	if err := s.db.Where("id = ? AND is_deleted = ?", entityID, false).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.ErrNotFound("legal entity not found")
		}
		return nil, httpx.ErrDatabaseError("", err)
	}

	if ok, err := s.guard.CanAccess(actor, entityID); err != nil {
		return nil, httpx.ErrDatabaseError("", err)
	} else if !ok {
		// Same response as an absent entity: a denied caller learns nothing
		s.auditor.Denied(actor, audit.ActionEndpointRegister, "legal_entity", entityID)
		return nil, httpx.ErrNotFound("legal entity not found")
	}

	ep := model.Endpoint{
		ID:                 uuid.NewString(),
		LegalEntityID:      entityID,
		Name:               params.Name,
		URL:                params.URL,
		Description:        params.Description,
		EndpointType:       params.EndpointType,
		DataCategory:       params.DataCategory,
		AuthMethod:         params.AuthMethod,
		VerificationStatus: model.VerificationStatusPending,
		PublicationStatus:  model.PublicationStatusDraft,
		AccessModel:        accessModel,
	}

	if err := s.db.Create(&ep).Error; err != nil {
		s.auditor.Record(actor, audit.ActionEndpointRegister, resourceEndpoint, ep.ID, model.AuditOutcomeFailure, map[string]any{"error": "insert failed"})
		return nil, httpx.ErrDatabaseError("", err)
	}

	s.auditor.Record(actor, audit.ActionEndpointRegister, resourceEndpoint, ep.ID, model.AuditOutcomeSuccess, map[string]any{
		"legal_entity_id": entityID,
		"endpoint_url":    ep.URL,
	})
	return &ep, nil
}

// SendVerification generates a challenge, marks the endpoint SENT, and runs
// the challenge/response protocol synchronously. The outbound POST happens
// outside any transaction; the outcome is committed afterwards with a
// state-guarded UPDATE.
func (s *Service) SendVerification(ctx context.Context, actor authz.Actor, endpointID string) (*model.Endpoint, VerifyResult, *httpx.AppError) {
	ep, appErr := s.load(endpointID)
	if appErr != nil {
		return nil, VerifyResult{}, appErr
	}
	if appErr := s.requireAccess(actor, ep.LegalEntityID, audit.ActionEndpointSendVerify, ep.ID); appErr != nil {
		return nil, VerifyResult{}, appErr
	}

	if ep.VerificationStatus == model.VerificationStatusVerified {
		return nil, VerifyResult{}, httpx.ErrStateConflict("endpoint is already verified (status=VERIFIED)")
	}
	if result := urlcheck.Classify(ep.URL); !result.Safe {
		return nil, VerifyResult{}, httpx.ErrUnsafeURL(result.Reason)
	}

	challenge, err := newChallenge()
	if err != nil {
		return nil, VerifyResult{}, httpx.ErrInternalError("failed to generate verification token", err)
	}

	now := time.Now()
	expires := now.Add(verificationTTL)
	res := s.db.Model(&model.Endpoint{}).
		Where("id = ? AND is_deleted = ? AND verification_status <> ?",
			ep.ID, false, model.VerificationStatusVerified).
		Updates(map[string]any{
			"verification_status":     model.VerificationStatusSent,
			"verification_token":      challenge,
			"verification_sent_at":    now,
			"verification_expires_at": expires,
		})
	if res.Error != nil {
		return nil, VerifyResult{}, httpx.ErrDatabaseError("", res.Error)
	}
	if res.RowsAffected == 0 {
		// Another caller verified it between our read and write
		return nil, VerifyResult{}, httpx.ErrStateConflict("endpoint is already verified (status=VERIFIED)")
	}

	// No transaction is open while we wait on the network
	result := s.verifier.Verify(ctx, ep.URL, ep.ID, challenge)

	if result.Verified {
		res = s.db.Model(&model.Endpoint{}).
			Where("id = ? AND verification_status = ? AND verification_token = ?",
				ep.ID, model.VerificationStatusSent, challenge).
			Updates(map[string]any{
				"verification_status": model.VerificationStatusVerified,
				"verification_token":  nil,
			})
	} else {
		res = s.db.Model(&model.Endpoint{}).
			Where("id = ? AND verification_status = ? AND verification_token = ?",
				ep.ID, model.VerificationStatusSent, challenge).
			Updates(map[string]any{
				"verification_status":     model.VerificationStatusFailed,
				"verification_token":      nil,
				"connection_test_details": result.Detail,
			})
	}
	if res.Error != nil {
		return nil, result, httpx.ErrDatabaseError("", res.Error)
	}

	outcome := model.AuditOutcomeFailure
	if result.Verified {
		outcome = model.AuditOutcomeSuccess
	}
	s.auditor.Record(actor, audit.ActionEndpointSendVerify, resourceEndpoint, ep.ID, outcome, map[string]any{
		"detail": result.Detail,
	})

	updated, appErr := s.load(ep.ID)
	if appErr != nil {
		return nil, result, appErr
	}
	return updated, result, nil
}

// VerifyToken is the manual fallback path: the caller presents the token
// out of band. Comparison is constant-time; the VERIFIED transition only
// lands if the row is still SENT and unexpired.
func (s *Service) VerifyToken(actor authz.Actor, endpointID, token string) (*model.Endpoint, *httpx.AppError) {
	if token == "" {
		return nil, httpx.ErrParamMissing("token is required")
	}

	ep, appErr := s.load(endpointID)
	if appErr != nil {
		return nil, appErr
	}
	if appErr := s.requireAccess(actor, ep.LegalEntityID, audit.ActionEndpointVerifyToken, ep.ID); appErr != nil {
		return nil, appErr
	}

	switch ep.VerificationStatus {
	case model.VerificationStatusVerified:
		return nil, httpx.ErrStateConflict("endpoint is already verified (status=VERIFIED)")
	case model.VerificationStatusPending:
		return nil, httpx.ErrStateConflict("verification was never sent (status=PENDING)")
	}

	now := time.Now()
	if ep.VerificationExpiresAt != nil && now.After(*ep.VerificationExpiresAt) {
		res := s.db.Model(&model.Endpoint{}).
			Where("id = ? AND verification_status = ?", ep.ID, model.VerificationStatusSent).
			Updates(map[string]any{
				"verification_status": model.VerificationStatusExpired,
				"verification_token":  nil,
			})
		if res.Error != nil {
			return nil, httpx.ErrDatabaseError("", res.Error)
		}
		return nil, httpx.ErrStateConflict("verification token has expired (status=EXPIRED)")
	}

	if ep.VerificationStatus != model.VerificationStatusSent || ep.VerificationToken == nil {
		return nil, httpx.ErrStateConflict(fmt.Sprintf("endpoint cannot be verified in its current state (status=%s)", ep.VerificationStatus))
	}

	if subtle.ConstantTimeCompare([]byte(*ep.VerificationToken), []byte(token)) != 1 {
		s.auditor.Record(actor, audit.ActionEndpointVerifyToken, resourceEndpoint, ep.ID, model.AuditOutcomeFailure, map[string]any{
			"reason": "invalid token",
		})
		return nil, httpx.ErrParamInvalid("invalid token")
	}

	res := s.db.Model(&model.Endpoint{}).
		Where("id = ? AND verification_status = ? AND verification_token = ? AND verification_expires_at > ?",
			ep.ID, model.VerificationStatusSent, token, now).
		Updates(map[string]any{
			"verification_status": model.VerificationStatusVerified,
			"verification_token":  nil,
		})
	if res.Error != nil {
		return nil, httpx.ErrDatabaseError("", res.Error)
	}
	if res.RowsAffected == 0 {
		// A concurrent caller won the transition
		return nil, httpx.ErrStateConflict("endpoint is already verified (status=VERIFIED)")
	}

	s.auditor.Record(actor, audit.ActionEndpointVerifyToken, resourceEndpoint, ep.ID, model.AuditOutcomeSuccess, nil)
	return s.load(ep.ID)
}

// Test probes endpoint connectivity and persists the outcome. A failed probe
// is a recorded result, not an error. Testing requires a verified endpoint;
// activation later requires a passing test.
func (s *Service) Test(ctx context.Context, actor authz.Actor, endpointID string) (*TestOutcome, *httpx.AppError) {
	ep, appErr := s.load(endpointID)
	if appErr != nil {
		return nil, appErr
	}
	if appErr := s.requireAccess(actor, ep.LegalEntityID, audit.ActionEndpointTest, ep.ID); appErr != nil {
		return nil, appErr
	}
	if ep.VerificationStatus != model.VerificationStatusVerified {
		return nil, httpx.ErrStateConflict(fmt.Sprintf("endpoint must be verified before testing (status=%s)", ep.VerificationStatus))
	}

	outcome := s.tester.Test(ctx, ep.URL)

	resultJSON, err := json.Marshal(outcome)
	if err != nil {
		return nil, httpx.ErrInternalError("failed to encode test result", err)
	}
	res := s.db.Model(&model.Endpoint{}).
		Where("id = ? AND is_deleted = ?", ep.ID, false).
		Updates(map[string]any{
			"last_test_at":           time.Now(),
			"last_connection_status": outcome.Status,
			"test_result_data":       resultJSON,
		})
	if res.Error != nil {
		return nil, httpx.ErrDatabaseError("", res.Error)
	}

	auditOutcome := model.AuditOutcomeSuccess
	if !outcome.Success {
		auditOutcome = model.AuditOutcomeFailure
	}
	s.auditor.Record(actor, audit.ActionEndpointTest, resourceEndpoint, ep.ID, auditOutcome, map[string]any{
		"status":      outcome.Status,
		"status_code": outcome.StatusCode,
		"error":       outcome.ErrorMessage,
	})
	return &outcome, nil
}

// Activate turns the endpoint on. Requires VERIFIED and a recorded passing
// connectivity test (warning counts: the endpoint answered, just behind a
// redirect).
func (s *Service) Activate(actor authz.Actor, endpointID string) (*model.Endpoint, *httpx.AppError) {
	ep, appErr := s.load(endpointID)
	if appErr != nil {
		return nil, appErr
	}
	if appErr := s.requireAccess(actor, ep.LegalEntityID, audit.ActionEndpointActivate, ep.ID); appErr != nil {
		return nil, appErr
	}

	if ep.VerificationStatus != model.VerificationStatusVerified {
		return nil, httpx.ErrStateConflict(fmt.Sprintf("endpoint must be verified before activation (status=%s)", ep.VerificationStatus))
	}
	if ep.LastConnectionStatus == nil ||
		(*ep.LastConnectionStatus != TestStatusSuccess && *ep.LastConnectionStatus != TestStatusWarning) {
		return nil, httpx.ErrStateConflict("endpoint requires a passing connectivity test before activation")
	}

	res := s.db.Model(&model.Endpoint{}).
		Where("id = ? AND is_deleted = ? AND verification_status = ?",
			ep.ID, false, model.VerificationStatusVerified).
		Updates(map[string]any{
			"is_active":           true,
			"activation_date":     time.Now(),
			"deactivation_date":   nil,
			"deactivation_reason": nil,
		})
	if res.Error != nil {
		return nil, httpx.ErrDatabaseError("", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, httpx.ErrStateConflict("endpoint state changed; activation not applied")
	}

	s.auditor.Record(actor, audit.ActionEndpointActivate, resourceEndpoint, ep.ID, model.AuditOutcomeSuccess, nil)
	return s.load(ep.ID)
}

// Toggle sets is_active directly. Activation via toggle still requires
// VERIFIED; deactivation of a published endpoint is refused so the
// published-implies-active invariant holds (unpublish first).
func (s *Service) Toggle(actor authz.Actor, endpointID string, desired bool, reason *string) (*model.Endpoint, *httpx.AppError) {
	ep, appErr := s.load(endpointID)
	if appErr != nil {
		return nil, appErr
	}
	if appErr := s.requireAccess(actor, ep.LegalEntityID, audit.ActionEndpointToggle, ep.ID); appErr != nil {
		return nil, appErr
	}

	var res *gorm.DB
	if desired {
		if ep.VerificationStatus != model.VerificationStatusVerified {
			return nil, httpx.ErrStateConflict(fmt.Sprintf("endpoint must be verified before activation (status=%s)", ep.VerificationStatus))
		}
		res = s.db.Model(&model.Endpoint{}).
			Where("id = ? AND is_deleted = ? AND verification_status = ?",
				ep.ID, false, model.VerificationStatusVerified).
			Updates(map[string]any{
				"is_active":           true,
				"activation_date":     time.Now(),
				"deactivation_date":   nil,
				"deactivation_reason": nil,
			})
	} else {
		if ep.PublicationStatus == model.PublicationStatusPublished {
			return nil, httpx.ErrStateConflict("endpoint is published; unpublish before deactivating")
		}
		res = s.db.Model(&model.Endpoint{}).
			Where("id = ? AND is_deleted = ? AND publication_status <> ?",
				ep.ID, false, model.PublicationStatusPublished).
			Updates(map[string]any{
				"is_active":           false,
				"deactivation_date":   time.Now(),
				"activation_date":     nil,
				"deactivation_reason": reason,
			})
	}
	if res.Error != nil {
		return nil, httpx.ErrDatabaseError("", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, httpx.ErrStateConflict("endpoint state changed; toggle not applied")
	}

	s.auditor.Record(actor, audit.ActionEndpointToggle, resourceEndpoint, ep.ID, model.AuditOutcomeSuccess, map[string]any{
		"is_active": desired,
	})
	return s.load(ep.ID)
}

// Publish makes a verified endpoint discoverable in the directory.
// Force-activates as a side effect; published_at keeps its first value
// across republish cycles.
func (s *Service) Publish(actor authz.Actor, endpointID string) (*model.Endpoint, *httpx.AppError) {
	ep, appErr := s.load(endpointID)
	if appErr != nil {
		return nil, appErr
	}
	if appErr := s.requireAccess(actor, ep.LegalEntityID, audit.ActionEndpointPublish, ep.ID); appErr != nil {
		return nil, appErr
	}

	if ep.VerificationStatus != model.VerificationStatusVerified {
		return nil, httpx.ErrStateConflict(fmt.Sprintf("endpoint must be verified before publication (status=%s)", ep.VerificationStatus))
	}
	if ep.PublicationStatus == model.PublicationStatusPublished {
		return nil, httpx.ErrStateConflict("endpoint is already published")
	}

	updates := map[string]any{
		"publication_status": model.PublicationStatusPublished,
		"published_at":       gorm.Expr("COALESCE(published_at, ?)", time.Now()),
		"is_active":          true,
	}
	if !ep.IsActive {
		updates["activation_date"] = time.Now()
		updates["deactivation_date"] = nil
		updates["deactivation_reason"] = nil
	}

	res := s.db.Model(&model.Endpoint{}).
		Where("id = ? AND is_deleted = ? AND verification_status = ? AND publication_status <> ?",
			ep.ID, false, model.VerificationStatusVerified, model.PublicationStatusPublished).
		Updates(updates)
	if res.Error != nil {
		return nil, httpx.ErrDatabaseError("", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, httpx.ErrStateConflict("endpoint is already published")
	}

	s.auditor.Record(actor, audit.ActionEndpointPublish, resourceEndpoint, ep.ID, model.AuditOutcomeSuccess, nil)
	return s.load(ep.ID)
}

// Unpublish removes the endpoint from the directory. Leaves activation and
// verification untouched.
func (s *Service) Unpublish(actor authz.Actor, endpointID string) (*model.Endpoint, *httpx.AppError) {
	ep, appErr := s.load(endpointID)
	if appErr != nil {
		return nil, appErr
	}
	if appErr := s.requireAccess(actor, ep.LegalEntityID, audit.ActionEndpointUnpublish, ep.ID); appErr != nil {
		return nil, appErr
	}

	if ep.PublicationStatus != model.PublicationStatusPublished {
		return nil, httpx.ErrStateConflict(fmt.Sprintf("endpoint is not published (status=%s)", ep.PublicationStatus))
	}

	res := s.db.Model(&model.Endpoint{}).
		Where("id = ? AND is_deleted = ? AND publication_status = ?",
			ep.ID, false, model.PublicationStatusPublished).
		Update("publication_status", model.PublicationStatusUnpublished)
	if res.Error != nil {
		return nil, httpx.ErrDatabaseError("", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, httpx.ErrStateConflict("endpoint is not published")
	}

	s.auditor.Record(actor, audit.ActionEndpointUnpublish, resourceEndpoint, ep.ID, model.AuditOutcomeSuccess, nil)
	return s.load(ep.ID)
}

// Delete soft-deletes the endpoint; it disappears from all lookups and
// transitions.
func (s *Service) Delete(actor authz.Actor, endpointID string) *httpx.AppError {
	ep, appErr := s.load(endpointID)
	if appErr != nil {
		return appErr
	}
	if appErr := s.requireAccess(actor, ep.LegalEntityID, audit.ActionEndpointDelete, ep.ID); appErr != nil {
		return appErr
	}

	res := s.db.Model(&model.Endpoint{}).
		Where("id = ? AND is_deleted = ?", ep.ID, false).
		Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": time.Now(),
		})
	if res.Error != nil {
		return httpx.ErrDatabaseError("", res.Error)
	}
	if res.RowsAffected == 0 {
		return httpx.ErrNotFound("endpoint not found")
	}

	s.auditor.Record(actor, audit.ActionEndpointDelete, resourceEndpoint, ep.ID, model.AuditOutcomeSuccess, nil)
	return nil
}

// Get returns one endpoint, owner-or-admin only
func (s *Service) Get(actor authz.Actor, endpointID string) (*model.Endpoint, *httpx.AppError) {
	ep, appErr := s.load(endpointID)
	if appErr != nil {
		return nil, appErr
	}
	if appErr := s.requireAccess(actor, ep.LegalEntityID, "endpoint.read", ep.ID); appErr != nil {
		return nil, appErr
	}
	return ep, nil
}

// ListByEntity returns all endpoints of a legal entity, owner-or-admin only
func (s *Service) ListByEntity(actor authz.Actor, entityID string) ([]model.Endpoint, *httpx.AppError) {
	if appErr := s.requireAccess(actor, entityID, "endpoint.list", entityID); appErr != nil {
		return nil, appErr
	}

	var endpoints []model.Endpoint
	err := s.db.Where("legal_entity_id = ? AND is_deleted = ?", entityID, false).
		Order("created_at DESC").
		Find(&endpoints).Error
	if err != nil {
		return nil, httpx.ErrDatabaseError("", err)
	}
	return endpoints, nil
}

// load fetches a live endpoint; lazily expires an overdue SENT verification
// before the caller acts on stale state.
func (s *Service) load(endpointID string) (*model.Endpoint, *httpx.AppError) {
	var ep model.Endpoint
	err := s.db.Where("id = ? AND is_deleted = ?", endpointID, false).First(&ep).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.ErrNotFound("endpoint not found")
		}
		return nil, httpx.ErrDatabaseError("", err)
	}

	if ep.VerificationStatus == model.VerificationStatusSent &&
		ep.VerificationExpiresAt != nil && time.Now().After(*ep.VerificationExpiresAt) {
		res := s.db.Model(&model.Endpoint{}).
			Where("id = ? AND verification_status = ?", ep.ID, model.VerificationStatusSent).
			Updates(map[string]any{
				"verification_status": model.VerificationStatusExpired,
				"verification_token":  nil,
			})
		if res.Error == nil && res.RowsAffected > 0 {
			ep.VerificationStatus = model.VerificationStatusExpired
			ep.VerificationToken = nil
		}
	}

	return &ep, nil
}

// requireAccess runs the guard and maps a denial to not-found, auditing it
// as a security event.
func (s *Service) requireAccess(actor authz.Actor, entityID, action, resourceID string) *httpx.AppError {
	ok, err := s.guard.CanAccess(actor, entityID)
	if err != nil {
		return httpx.ErrDatabaseError("", err)
	}
	if !ok {
		s.auditor.Denied(actor, action, resourceEndpoint, resourceID)
		return httpx.ErrNotFound("endpoint not found")
	}
	return nil
}

// newChallenge returns a 32-byte random hex string
func newChallenge() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
