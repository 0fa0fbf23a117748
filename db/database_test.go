package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHistoryNewestFirst(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Record("/games/a", EventInstall, "4.0.6", "4.0.6", ""))
	require.NoError(t, s.Record("/games/a", EventModInstall, "fika-1.2", "1.2", "3 files"))
	require.NoError(t, s.Record("/games/b", EventInstall, "4.0.6", "4.0.6", ""))

	entries, err := s.History("/games/a", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EventModInstall, entries[0].Kind)
	assert.Equal(t, "fika-1.2", entries[0].Subject)
	assert.Equal(t, EventInstall, entries[1].Kind)

	limited, err := s.History("/games/a", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordOnNilStore(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Record("/x", EventInstall, "", "", ""))
}

func TestMultiplayerLifecycle(t *testing.T) {
	s := openTestStore(t)
	root := "/games/a"

	mc, err := s.GetMultiplayer(root)
	require.NoError(t, err)
	assert.Nil(t, mc)

	require.NoError(t, s.SaveMultiplayer(root, ModeHost, "1.2.3.4", ""))
	mc, err = s.GetMultiplayer(root)
	require.NoError(t, err)
	require.NotNil(t, mc)
	assert.Equal(t, ModeHost, mc.Mode)
	assert.Equal(t, "1.2.3.4", mc.HostIP)

	require.NoError(t, s.SaveMultiplayer(root, ModeClient, "5.6.7.8", "9.9.9.9"))
	mc, err = s.GetMultiplayer(root)
	require.NoError(t, err)
	require.NotNil(t, mc)
	assert.Equal(t, ModeClient, mc.Mode)
	assert.Equal(t, "5.6.7.8", mc.HostIP)
	assert.Equal(t, "9.9.9.9", mc.MyIP)

	var count int64
	require.NoError(t, s.DB.Model(&MultiplayerConfig{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, s.ClearMultiplayer(root))
	mc, err = s.GetMultiplayer(root)
	require.NoError(t, err)
	assert.Nil(t, mc)
}
