package authz

import (
	"ctn_registry/internal/model"

	"gorm.io/gorm"
)

// Actor is the authenticated caller as extracted from the JWT by the
// auth middleware.
type Actor struct {
	Email string
	Roles []string
}

// IsAdmin reports whether the actor holds an administrative role
func (a Actor) IsAdmin() bool {
	for _, r := range a.Roles {
		if r == model.RoleSystemAdmin || r == model.RoleAssociationAdmin {
			return true
		}
	}
	return false
}

// Guard decides read/write eligibility for legal-entity resources.
// Admins always pass; other actors pass only through an active contact
// record tying their email to the entity.
type Guard struct {
	db *gorm.DB
}

// NewGuard creates a new authorization guard
func NewGuard(db *gorm.DB) *Guard {
	return &Guard{db: db}
}

// CanAccess reports whether the actor may operate on the given legal entity.
// Callers must translate a false result into a not-found response, never a
// forbidden one, so unauthorized probes cannot confirm that a resource exists.
func (g *Guard) CanAccess(actor Actor, legalEntityID string) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	if actor.Email == "" || legalEntityID == "" {
		return false, nil
	}

	var count int64
	err := g.db.Model(&model.Contact{}).
		Joins("JOIN legal_entities ON legal_entities.id = contacts.legal_entity_id").
		Where("contacts.legal_entity_id = ? AND contacts.email = ? AND contacts.is_active = ?",
			legalEntityID, actor.Email, true).
		Where("legal_entities.is_deleted = ?", false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ResolveEntity returns the legal entity the actor belongs to, resolved
// through the actor's active contact records. Returns empty when the actor
// has no entity association (an identity problem, reported as 403 upstream,
// unlike resource lookups).
func (g *Guard) ResolveEntity(actor Actor) (string, error) {
	if actor.Email == "" {
		return "", nil
	}

	var contact model.Contact
	err := g.db.
		Joins("JOIN legal_entities ON legal_entities.id = contacts.legal_entity_id").
		Where("contacts.email = ? AND contacts.is_active = ?", actor.Email, true).
		Where("legal_entities.is_deleted = ?", false).
		Order("contacts.created_at ASC").
		First(&contact).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return contact.LegalEntityID, nil
}
