package access

import (
	"testing"

	"genealogy-service/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanAccess(t *testing.T) {
	ownerID := uuid.New()
	strangerID := uuid.New()

	owner := &Principal{ID: ownerID, Email: "owner@example.com", AccountType: model.AccountFree}
	stranger := &Principal{ID: strangerID, Email: "stranger@example.com", AccountType: model.AccountFree}

	tests := []struct {
		name      string
		principal *Principal
		privacy   string
		intent    Intent
		want      bool
	}{
		{
			name:      "owner reads private resource",
			principal: owner,
			privacy:   model.PrivacyPrivate,
			intent:    IntentRead,
			want:      true,
		},
		{
			name:      "owner writes private resource",
			principal: owner,
			privacy:   model.PrivacyPrivate,
			intent:    IntentWrite,
			want:      true,
		},
		{
			name:      "stranger reads private resource",
			principal: stranger,
			privacy:   model.PrivacyPrivate,
			intent:    IntentRead,
			want:      false,
		},
		{
			name:      "stranger reads public resource",
			principal: stranger,
			privacy:   model.PrivacyPublic,
			intent:    IntentRead,
			want:      true,
		},
		{
			name:      "stranger reads shared resource",
			principal: stranger,
			privacy:   model.PrivacyShared,
			intent:    IntentRead,
			want:      true,
		},
		{
			name:      "stranger writes public resource",
			principal: stranger,
			privacy:   model.PrivacyPublic,
			intent:    IntentWrite,
			want:      false,
		},
		{
			name:      "anonymous reads public resource",
			principal: nil,
			privacy:   model.PrivacyPublic,
			intent:    IntentRead,
			want:      true,
		},
		{
			name:      "anonymous reads private resource",
			principal: nil,
			privacy:   model.PrivacyPrivate,
			intent:    IntentRead,
			want:      false,
		},
		{
			name:      "anonymous writes public resource",
			principal: nil,
			privacy:   model.PrivacyPublic,
			intent:    IntentWrite,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resource{OwnerID: ownerID, PrivacyLevel: tt.privacy}
			assert.Equal(t, tt.want, CanAccess(tt.principal, res, tt.intent))
		})
	}
}

func TestDecide_CollaborationGrants(t *testing.T) {
	ownerID := uuid.New()
	collaborator := &Principal{ID: uuid.New(), Email: "collab@example.com", AccountType: model.AccountFree}
	private := Resource{OwnerID: ownerID, PrivacyLevel: model.PrivacyPrivate}

	tests := []struct {
		name   string
		grant  Level
		intent Intent
		want   bool
	}{
		{"view grant allows read", LevelView, IntentRead, true},
		{"view grant denies write", LevelView, IntentWrite, false},
		{"edit grant allows read", LevelEdit, IntentRead, true},
		{"edit grant allows write", LevelEdit, IntentWrite, true},
		{"admin grant allows write", LevelAdmin, IntentWrite, true},
		{"no grant denies read", LevelNone, IntentRead, false},
		{"no grant denies write", LevelNone, IntentWrite, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(collaborator, private, tt.grant, tt.intent))
		})
	}
}

func TestDecide_OwnerOutranksGrant(t *testing.T) {
	ownerID := uuid.New()
	owner := &Principal{ID: ownerID, Email: "owner@example.com", AccountType: model.AccountFree}
	private := Resource{OwnerID: ownerID, PrivacyLevel: model.PrivacyPrivate}

	// A stale view grant on the owner's own tree must not weaken ownership
	assert.True(t, Decide(owner, private, LevelView, IntentWrite))
}

func TestDecide_AnonymousIgnoresGrant(t *testing.T) {
	private := Resource{OwnerID: uuid.New(), PrivacyLevel: model.PrivacyPrivate}

	// A grant level passed alongside a nil principal carries no authority
	assert.False(t, Decide(nil, private, LevelAdmin, IntentRead))
	assert.False(t, Decide(nil, private, LevelAdmin, IntentWrite))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelView, ParseLevel(model.PermissionView))
	assert.Equal(t, LevelEdit, ParseLevel(model.PermissionEdit))
	assert.Equal(t, LevelAdmin, ParseLevel(model.PermissionAdmin))
	assert.Equal(t, LevelNone, ParseLevel("owner"))
	assert.Equal(t, LevelNone, ParseLevel(""))
}
