package status

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-assetsync/internal/naming"
)

var testKey = naming.ResourceKey{Locale: "en", Type: "cards"}

func TestFileStatusPersistence_SaveAndLoad(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	persistence := NewFileStatusPersistence(tmpDir)
	require.NotNil(t, persistence)

	now := time.Now()
	testStatus := &SyncStatus{
		Phase:        SyncPhaseComplete,
		Message:      "Sync completed",
		LastAttempt:  &now,
		AttemptCount: 1,
		LastSyncTime: &now,
		LastRevision: "abc123",
	}

	ctx := context.Background()
	require.NoError(t, persistence.SaveStatus(ctx, testKey, testStatus))

	_, err := os.Stat(filepath.Join(tmpDir, "en", "cards", StatusFileName))
	require.NoError(t, err)

	loaded, err := persistence.LoadStatus(ctx, testKey)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, testStatus.Phase, loaded.Phase)
	require.Equal(t, testStatus.Message, loaded.Message)
	require.Equal(t, testStatus.AttemptCount, loaded.AttemptCount)
	require.Equal(t, testStatus.LastRevision, loaded.LastRevision)
	require.NotNil(t, loaded.LastSyncTime)
	require.True(t, now.Equal(*loaded.LastSyncTime))
}

func TestFileStatusPersistence_LoadNonExistent(t *testing.T) {
	t.Parallel()

	persistence := NewFileStatusPersistence(t.TempDir())

	loaded, err := persistence.LoadStatus(context.Background(), testKey)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, SyncPhase(""), loaded.Phase)
	require.Empty(t, loaded.Message)
}

func TestFileStatusPersistence_Overwrite(t *testing.T) {
	t.Parallel()

	persistence := NewFileStatusPersistence(t.TempDir())
	ctx := context.Background()

	require.NoError(t, persistence.SaveStatus(ctx, testKey, &SyncStatus{
		Phase:        SyncPhaseSyncing,
		AttemptCount: 1,
	}))
	require.NoError(t, persistence.SaveStatus(ctx, testKey, &SyncStatus{
		Phase:        SyncPhaseFailed,
		Message:      "fetch failed",
		ErrorCode:    "network",
		AttemptCount: 2,
	}))

	loaded, err := persistence.LoadStatus(ctx, testKey)
	require.NoError(t, err)
	require.Equal(t, SyncPhaseFailed, loaded.Phase)
	require.Equal(t, "network", loaded.ErrorCode)
	require.Equal(t, 2, loaded.AttemptCount)
}

func TestFileStatusPersistence_InvalidKey(t *testing.T) {
	t.Parallel()

	persistence := NewFileStatusPersistence(t.TempDir())
	ctx := context.Background()
	bad := naming.ResourceKey{Locale: "..", Type: "cards"}

	require.Error(t, persistence.SaveStatus(ctx, bad, &SyncStatus{}))
	_, err := persistence.LoadStatus(ctx, bad)
	require.Error(t, err)
}

func TestFileStatusPersistence_LoadAllStatus(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	persistence := NewFileStatusPersistence(tmpDir)
	ctx := context.Background()

	movie := naming.ResourceKey{Locale: "jp", Type: "movie"}
	require.NoError(t, persistence.SaveStatus(ctx, testKey, &SyncStatus{Phase: SyncPhaseComplete}))
	require.NoError(t, persistence.SaveStatus(ctx, movie, &SyncStatus{Phase: SyncPhaseFailed}))

	// Stray entries are skipped
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "README"), []byte("x"), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "fr", "empty"), 0750))
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "de", "broken"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "de", "broken", StatusFileName), []byte("{"), 0600))

	all, err := persistence.LoadAllStatus(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, SyncPhaseComplete, all[testKey].Phase)
	require.Equal(t, SyncPhaseFailed, all[movie].Phase)
}

func TestFileStatusPersistence_LoadAllStatusMissingDir(t *testing.T) {
	t.Parallel()

	persistence := NewFileStatusPersistence(filepath.Join(t.TempDir(), "missing"))
	all, err := persistence.LoadAllStatus(context.Background())
	require.NoError(t, err)
	require.Empty(t, all)
}
