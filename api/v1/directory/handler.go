package directory

import (
	"encoding/json"
	"time"

	"ctn_registry/api/v1/middleware"
	"ctn_registry/internal/authz"
	"ctn_registry/internal/cache"
	"ctn_registry/internal/httpx"
	"ctn_registry/internal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Item is one discoverable endpoint. The directory never exposes
// verification state or test payloads.
type Item struct {
	ID            string  `json:"id"`
	LegalEntityID string  `json:"legalEntityId"`
	EntityName    string  `json:"entityName"`
	Name          string  `json:"endpointName"`
	Description   *string `json:"description"`
	EndpointType  *string `json:"endpointType"`
	DataCategory  *string `json:"dataCategory"`
	AccessModel   string  `json:"accessModel"`
	PublishedAt   *string `json:"publishedAt"`
}

// Handler serves consumer discovery of published endpoints
type Handler struct {
	db    *gorm.DB
	guard *authz.Guard
}

// NewHandler creates a new directory handler
func NewHandler(db *gorm.DB, guard *authz.Guard) *Handler {
	return &Handler{db: db, guard: guard}
}

// List handles GET /api/v1/endpoint-directory. The view excludes the
// consumer's own endpoints and is cached per entity; every directory-
// affecting write invalidates the cache.
func (h *Handler) List(c *gin.Context) {
	actor := middleware.Actor(c)

	entityID, err := h.guard.ResolveEntity(actor)
	if err != nil {
		httpx.FailErr(c, httpx.ErrDatabaseError("", err))
		return
	}
	if entityID == "" && !actor.IsAdmin() {
		httpx.FailErr(c, httpx.ErrNoEntity(""))
		return
	}

	cacheKey := entityID
	if cacheKey == "" {
		cacheKey = "admin"
	}
	if data, ok := cache.GetDirectory(c.Request.Context(), cacheKey); ok {
		var items []Item
		if json.Unmarshal(data, &items) == nil {
			httpx.OK(c, items)
			return
		}
	}

	query := h.db.Model(&model.Endpoint{}).
		Select(`legal_entity_endpoints.id, legal_entity_endpoints.legal_entity_id,
			legal_entities.name AS entity_name, legal_entity_endpoints.endpoint_name,
			legal_entity_endpoints.description, legal_entity_endpoints.endpoint_type,
			legal_entity_endpoints.data_category, legal_entity_endpoints.access_model,
			legal_entity_endpoints.published_at`).
		Joins("JOIN legal_entities ON legal_entities.id = legal_entity_endpoints.legal_entity_id").
		Where("legal_entity_endpoints.publication_status = ?", model.PublicationStatusPublished).
		Where("legal_entity_endpoints.is_active = ? AND legal_entity_endpoints.is_deleted = ?", true, false).
		Where("legal_entities.is_deleted = ?", false)
	if entityID != "" {
		query = query.Where("legal_entity_endpoints.legal_entity_id <> ?", entityID)
	}

	var rows []struct {
		ID            string
		LegalEntityID string
		EntityName    string
		EndpointName  string
		Description   *string
		EndpointType  *string
		DataCategory  *string
		AccessModel   string
		PublishedAt   *time.Time
	}
	if err := query.Order("legal_entity_endpoints.published_at DESC").Scan(&rows).Error; err != nil {
		httpx.FailErr(c, httpx.ErrDatabaseError("", err))
		return
	}

	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		var publishedAt *string
		if r.PublishedAt != nil {
			s := r.PublishedAt.Format(time.RFC3339)
			publishedAt = &s
		}
		items = append(items, Item{
			ID:            r.ID,
			LegalEntityID: r.LegalEntityID,
			EntityName:    r.EntityName,
			Name:          r.EndpointName,
			Description:   r.Description,
			EndpointType:  r.EndpointType,
			DataCategory:  r.DataCategory,
			AccessModel:   r.AccessModel,
			PublishedAt:   publishedAt,
		})
	}

	if data, err := json.Marshal(items); err == nil {
		cache.SetDirectory(c.Request.Context(), cacheKey, data)
	}

	httpx.OK(c, items)
}
