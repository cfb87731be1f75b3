package service_test

import (
	"errors"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-assetsync/internal/engine"
	"github.com/stacklok/toolhive-assetsync/internal/git/gittest"
	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/service"
	"github.com/stacklok/toolhive-assetsync/internal/status"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

type staticStatus map[naming.ResourceKey]*status.SyncStatus

func (s staticStatus) GetStatus(key naming.ResourceKey) *status.SyncStatus {
	return s[key]
}

func (s staticStatus) GetAllStatus() map[naming.ResourceKey]*status.SyncStatus {
	return s
}

var (
	enCards = naming.ResourceKey{Locale: "en", Type: "cards"}
	jpMovie = naming.ResourceKey{Locale: "jp", Type: "movie"}
	cnSongs = naming.ResourceKey{Locale: "cn", Type: "songs"}
)

func setupService(t *testing.T, watcher service.StatusSource) (service.AssetService, *engine.Engine, *gittest.Remote) {
	t.Helper()

	remote := gittest.NewRemote(t, map[string]gittest.Files{
		"en/cards": {"card_001.json": `{"id":1}`, "res/icon.png": "png"},
		"jp/movie": {"intro.mp4": "mp4"},
	})
	eng, err := engine.Open(t.Context(), engine.Config{
		Remote:    remote.URL(),
		DataDir:   t.TempDir(),
		ExportDir: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	require.NoError(t, eng.Download(t.Context(), "en", "cards", nil))
	require.NoError(t, eng.Download(t.Context(), "jp", "movie", nil))

	return service.New(eng, watcher), eng, remote
}

func TestAssetService_CheckReadiness(t *testing.T) {
	t.Parallel()

	svc, eng, _ := setupService(t, nil)
	require.NoError(t, svc.CheckReadiness(t.Context()))

	require.NoError(t, eng.Close())
	err := svc.CheckReadiness(t.Context())
	require.Error(t, err)
	assert.True(t, errors.Is(err, syncerr.ErrNotStarted))
}

func TestAssetService_ListResources(t *testing.T) {
	t.Parallel()

	watcher := staticStatus{
		enCards: {Phase: status.SyncPhaseComplete},
		cnSongs: {Phase: status.SyncPhasePending},
	}
	svc, _, remote := setupService(t, watcher)

	t.Run("all", func(t *testing.T) {
		t.Parallel()
		infos, err := svc.ListResources(t.Context())
		require.NoError(t, err)
		require.Len(t, infos, 3)

		assert.Equal(t, cnSongs, infos[0].Key())
		assert.False(t, infos[0].Downloaded)
		assert.Empty(t, infos[0].Revision)
		assert.Equal(t, "cn/songs", infos[0].Branch)
		require.NotNil(t, infos[0].Watch)
		assert.Equal(t, status.SyncPhasePending, infos[0].Watch.Phase)

		assert.Equal(t, enCards, infos[1].Key())
		assert.True(t, infos[1].Downloaded)
		assert.Equal(t, remote.Tip("en/cards").String(), infos[1].Revision)
		assert.Equal(t, remote.URL(), infos[1].Remote)
		assert.NotNil(t, infos[1].UpdatedAt)
		require.NotNil(t, infos[1].Watch)
		assert.Equal(t, status.SyncPhaseComplete, infos[1].Watch.Phase)

		assert.Equal(t, jpMovie, infos[2].Key())
		assert.True(t, infos[2].Downloaded)
		assert.Nil(t, infos[2].Watch)
	})

	t.Run("filtered by locale", func(t *testing.T) {
		t.Parallel()
		infos, err := svc.ListResources(t.Context(), service.WithLocale("jp"))
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, jpMovie, infos[0].Key())
	})

	t.Run("filtered by type", func(t *testing.T) {
		t.Parallel()
		infos, err := svc.ListResources(t.Context(), service.WithType("songs"))
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, cnSongs, infos[0].Key())
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()
		infos, err := svc.ListResources(t.Context(), service.WithLocale("en"), service.WithType("movie"))
		require.NoError(t, err)
		assert.Empty(t, infos)
	})

	t.Run("invalid option", func(t *testing.T) {
		t.Parallel()
		_, err := svc.ListResources(t.Context(), service.WithLocale(""))
		require.Error(t, err)
	})
}

func TestAssetService_GetResource(t *testing.T) {
	t.Parallel()

	svc, _, remote := setupService(t, staticStatus{cnSongs: {Phase: status.SyncPhaseFailed}})

	info, err := svc.GetResource(t.Context(), enCards)
	require.NoError(t, err)
	assert.True(t, info.Downloaded)
	assert.Equal(t, remote.Tip("en/cards").String(), info.Revision)
	assert.Nil(t, info.Watch)

	info, err = svc.GetResource(t.Context(), cnSongs)
	require.NoError(t, err)
	assert.False(t, info.Downloaded)
	require.NotNil(t, info.Watch)
	assert.Equal(t, status.SyncPhaseFailed, info.Watch.Phase)

	_, err = svc.GetResource(t.Context(), naming.ResourceKey{Locale: "fr", Type: "sounds"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrResourceNotFound))

	_, err = svc.GetResource(t.Context(), naming.ResourceKey{Locale: "..", Type: "cards"})
	require.Error(t, err)
	assert.Equal(t, syncerr.CodeValidation, syncerr.CodeOf(err))
}

func TestAssetService_NoWatcher(t *testing.T) {
	t.Parallel()

	svc, _, _ := setupService(t, nil)

	infos, err := svc.ListResources(t.Context())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	for _, info := range infos {
		assert.Nil(t, info.Watch)
	}

	_, err = svc.GetResource(t.Context(), cnSongs)
	assert.True(t, errors.Is(err, service.ErrResourceNotFound))
}

func TestAssetService_CheckForUpdate(t *testing.T) {
	t.Parallel()

	svc, _, remote := setupService(t, nil)

	result, err := svc.CheckForUpdate(t.Context(), enCards)
	require.NoError(t, err)
	assert.False(t, result.IsUpdateAvailable)

	next := remote.Commit("en/cards", gittest.Files{"card_002.json": `{"id":2}`})
	result, err = svc.CheckForUpdate(t.Context(), enCards)
	require.NoError(t, err)
	assert.True(t, result.IsUpdateAvailable)
	assert.Equal(t, next.String(), result.RemoteSHA)
}

func TestAssetService_Files(t *testing.T) {
	t.Parallel()

	svc, _, _ := setupService(t, nil)

	data, err := svc.FileData(t.Context(), enCards, "card_001.json")
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(data))

	hash, err := svc.FileHash(t.Context(), enCards, "card_001.json")
	require.NoError(t, err)
	assert.Equal(t, digest.FromString(`{"id":1}`), hash)

	entries, err := svc.ListDirectory(t.Context(), enCards, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"card_001.json", "res"}, entries)

	_, err = svc.FileData(t.Context(), enCards, "missing.json")
	require.Error(t, err)
	assert.Equal(t, syncerr.CodeNotFound, syncerr.CodeOf(err))
}
