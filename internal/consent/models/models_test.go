package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "trustbank/pkg/domain"
)

func TestDefaultSettingsGrantsEverything(t *testing.T) {
	s := DefaultSettings(id.UserID(uuid.New()), time.Now())
	assert.Empty(t, s.Snapshot().Withheld())
}

func TestSnapshotIsIndependentOfSettings(t *testing.T) {
	s := DefaultSettings(id.UserID(uuid.New()), time.Now())
	snap := s.Snapshot()

	no := false
	s.Apply(Update{Income: &no}, time.Now())

	assert.True(t, snap.Income)
	assert.False(t, s.Income)
}

func TestApply(t *testing.T) {
	then := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := then.Add(time.Hour)
	yes, no := true, false

	t.Run("reports changed categories only", func(t *testing.T) {
		s := DefaultSettings(id.UserID(uuid.New()), then)
		changed := s.Apply(Update{Income: &no, Location: &yes, DeviceInfo: &no}, now)
		assert.Equal(t, []Category{CategoryIncome, CategoryDeviceInfo}, changed)
		assert.Equal(t, now, s.UpdatedAt)
	})

	t.Run("no-op keeps timestamp", func(t *testing.T) {
		s := DefaultSettings(id.UserID(uuid.New()), then)
		assert.Empty(t, s.Apply(Update{BehavioralData: &yes}, now))
		assert.Equal(t, then, s.UpdatedAt)
	})
}

func TestSnapshotMissingFlagsAreWithheld(t *testing.T) {
	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"income":true,"location":true}`), &snap))
	assert.Equal(t, []Category{CategoryTransactionHistory, CategoryDeviceInfo, CategoryBehavioralData}, snap.Withheld())
}

func TestNilSettingsSnapshotWithholdsEverything(t *testing.T) {
	var s *Settings
	assert.Len(t, s.Snapshot().Withheld(), 5)
}
