// Package access decides whether a principal may read or write a
// tree-scoped resource. Every function here is pure: callers load the
// resource (and any collaboration grant) first, and soft-deleted records
// must be resolved to not-found before access is evaluated so that a
// denied lookup is indistinguishable from a missing one.
package access

import (
	"genealogy-service/internal/model"

	"github.com/google/uuid"
)

// Intent is the kind of operation being evaluated.
type Intent int

const (
	IntentRead Intent = iota
	IntentWrite
)

// Level is an effective permission level on a resource, ordered weakest to
// strongest. LevelOwner is reserved for the resource owner and is never
// granted through a collaboration permission.
type Level int

const (
	LevelNone Level = iota
	LevelView
	LevelEdit
	LevelAdmin
	LevelOwner
)

// Principal is the authenticated identity attached to a request. A nil
// *Principal is an anonymous caller.
type Principal struct {
	ID          uuid.UUID
	Email       string
	AccountType string
}

// Resource is the owner and privacy level of the record being evaluated.
// For person-scoped operations this is the owning tree, never the person's
// own privacy field; for relationship reads it is the primary person's tree.
type Resource struct {
	OwnerID      uuid.UUID
	PrivacyLevel string
}

// CanAccess reports whether the principal may perform the intent on the
// resource under ownership and privacy rules alone. Write requires
// ownership; read requires ownership or a non-private privacy level.
func CanAccess(p *Principal, res Resource, intent Intent) bool {
	return Decide(p, res, LevelNone, intent)
}

// Decide folds a granted collaboration level into the ownership and privacy
// check. The effective level is LevelOwner for the resource owner and the
// grant otherwise; write requires edit or above, read requires view or
// above, falling through to the privacy level.
func Decide(p *Principal, res Resource, grant Level, intent Intent) bool {
	level := LevelNone
	if p != nil {
		level = grant
		if p.ID == res.OwnerID {
			level = LevelOwner
		}
	}

	if intent == IntentWrite {
		return level >= LevelEdit
	}

	if level >= LevelView {
		return true
	}
	return res.PrivacyLevel != model.PrivacyPrivate
}

// ParseLevel maps a stored permission level to its ordered Level. Unknown
// values map to LevelNone.
func ParseLevel(s string) Level {
	switch s {
	case model.PermissionView:
		return LevelView
	case model.PermissionEdit:
		return LevelEdit
	case model.PermissionAdmin:
		return LevelAdmin
	}
	return LevelNone
}
