package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccmarkets/engine/internal/models"
)

func TestLock(t *testing.T) {
	u := &models.User{Available: 100, Locked: 0}
	require.NoError(t, Lock(u, 40))
	assert.Equal(t, 60.0, u.Available)
	assert.Equal(t, 40.0, u.Locked)

	assert.Error(t, Lock(u, 1000))
	assert.Error(t, Lock(u, -5))
}

func TestUnlock(t *testing.T) {
	u := &models.User{Available: 60, Locked: 40}
	require.NoError(t, Unlock(u, 40))
	assert.Equal(t, 100.0, u.Available)
	assert.Equal(t, 0.0, u.Locked)

	assert.Error(t, Unlock(u, 50))
}

func TestCredit(t *testing.T) {
	u := &models.User{Available: 10, TotalEarned: 0}
	require.NoError(t, Credit(u, 25))
	assert.Equal(t, 35.0, u.Available)
	assert.Equal(t, 25.0, u.TotalEarned)

	assert.Error(t, Credit(u, -1))
}

func TestDebitFromLocked(t *testing.T) {
	u := &models.User{Locked: 40, TotalLost: 0}
	require.NoError(t, DebitFromLocked(u, 40))
	assert.Equal(t, 0.0, u.Locked)
	assert.Equal(t, 40.0, u.TotalLost)

	assert.Error(t, DebitFromLocked(u, -1))
}

func TestDebitFromLockedClampsToAvailableLocked(t *testing.T) {
	u := &models.User{Locked: 10, TotalLost: 0}
	require.NoError(t, DebitFromLocked(u, 40))
	assert.Equal(t, 0.0, u.Locked)
	assert.Equal(t, 10.0, u.TotalLost)
}
