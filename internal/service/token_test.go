package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret-that-is-long-enough-123456", time.Hour)
	userID := uuid.New()

	token, expires, err := tm.Issue(userID, valueobject.RoleMediator)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	gotID, role, err := tm.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, valueobject.RoleMediator, role)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager("test-secret-that-is-long-enough-123456", time.Hour)
	other := NewTokenManager("another-secret-that-is-long-enough-99", time.Hour)

	token, _, err := other.Issue(uuid.New(), valueobject.RoleRequester)
	require.NoError(t, err)
	_, _, err = tm.ParseAccess(token)
	assert.Error(t, err)

	expired := NewTokenManager("test-secret-that-is-long-enough-123456", -time.Minute)
	token, _, err = expired.Issue(uuid.New(), valueobject.RoleRequester)
	require.NoError(t, err)
	_, _, err = tm.ParseAccess(token)
	assert.Error(t, err)

	_, _, err = tm.Issue(uuid.New(), valueobject.Role("admin"))
	assert.Error(t, err)
}
