package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshToken_Active(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		token RefreshToken
		want  bool
	}{
		{
			name:  "live token",
			token: RefreshToken{ExpiresAt: now.Add(time.Hour)},
			want:  true,
		},
		{
			name:  "revoked",
			token: RefreshToken{ExpiresAt: now.Add(time.Hour), Revoked: true},
			want:  false,
		},
		{
			name:  "expired",
			token: RefreshToken{ExpiresAt: now.Add(-time.Second)},
			want:  false,
		},
		{
			name:  "expired and revoked",
			token: RefreshToken{ExpiresAt: now.Add(-time.Hour), Revoked: true},
			want:  false,
		},
		{
			name:  "expires exactly now",
			token: RefreshToken{ExpiresAt: now},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.Active(now))
		})
	}
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(UserRoleReader))
	assert.True(t, ValidRole(UserRolePublisher))
	assert.False(t, ValidRole(UserRoleAdmin))
	assert.False(t, ValidRole(UserRole("superuser")))
	assert.False(t, ValidRole(UserRole("")))
}
