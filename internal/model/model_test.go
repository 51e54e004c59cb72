package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSetupTokenState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	used := now.Add(-time.Hour)

	tests := []struct {
		name  string
		token SetupToken
		want  SetupTokenState
	}{
		{"pending", SetupToken{ExpiresAt: now.Add(time.Hour)}, SetupTokenPending},
		{"expired at boundary", SetupToken{ExpiresAt: now}, SetupTokenExpired},
		{"used", SetupToken{ExpiresAt: now.Add(time.Hour), UsedAt: &used}, SetupTokenUsed},
		{"used and expired", SetupToken{ExpiresAt: now.Add(-time.Minute), UsedAt: &used}, SetupTokenUsed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.State(now))
		})
	}
}

func TestBaseBeforeCreateAssignsID(t *testing.T) {
	var b Base
	assert.NoError(t, b.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, b.ID)

	fixed := uuid.New()
	b = Base{ID: fixed}
	assert.NoError(t, b.BeforeCreate(nil))
	assert.Equal(t, fixed, b.ID)
}

func TestTenantRecord(t *testing.T) {
	org := uuid.New()
	var rec TenantRecord = &Building{}
	rec.SetOrganizationID(org)
	assert.Equal(t, org, rec.GetOrganizationID())

	assert.True(t, TicketInProgress.Valid())
	assert.False(t, TicketStatus("archived").Valid())
}
