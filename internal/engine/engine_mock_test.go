package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/toolhive-assetsync/internal/git"
	"github.com/stacklok/toolhive-assetsync/internal/git/mocks"
	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/store"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

const (
	revisionA = "1111111111111111111111111111111111111111"
	revisionB = "2222222222222222222222222222222222222222"
)

// fakeClone creates an empty working copy where the transport would clone
func fakeClone(revision string) func(context.Context, *git.CloneOptions) (string, error) {
	return func(_ context.Context, opts *git.CloneOptions) (string, error) {
		if err := os.MkdirAll(filepath.Join(opts.Directory, ".git"), 0750); err != nil {
			return "", err
		}
		return revision, nil
	}
}

func TestEngine_UpdateRollsBackFailedCheckout(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	e := openEngine(t, "https://example.com/bundle.git", WithTransport(transport))
	dir := workingCopy(t, e, "en", "cards")

	transport.EXPECT().Clone(gomock.Any(), gomock.Any()).DoAndReturn(fakeClone(revisionA))
	require.NoError(t, e.Download(t.Context(), "en", "cards", nil))

	gomock.InOrder(
		transport.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(revisionB, nil),
		transport.EXPECT().Checkout(dir, revisionB).Return(errors.New("worktree is locked")),
		transport.EXPECT().Checkout(dir, revisionA).Return(nil),
	)

	status, err := e.Update(t.Context(), "en", "cards", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, syncerr.ErrStorage))
	assert.Equal(t, UpdateStatusFailed, status)

	record, err := e.Record("en", "cards")
	require.NoError(t, err)
	assert.Equal(t, revisionA, record.Revision)
}

// flakyRecords fails SaveRecord while failSaves is set
type flakyRecords struct {
	store.RecordPersistence
	failSaves atomic.Bool
}

func (f *flakyRecords) SaveRecord(key naming.ResourceKey, record *store.Record) error {
	if f.failSaves.Load() {
		return errors.New("no space left on device")
	}
	return f.RecordPersistence.SaveRecord(key, record)
}

func TestEngine_UpdateRestoresHeadWhenRecordSaveFails(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	records := &flakyRecords{RecordPersistence: store.NewFileRecordPersistence(t.TempDir())}
	e := openEngine(t, "https://example.com/bundle.git",
		WithTransport(transport), WithStoreOptions(store.WithPersistence(records)))
	dir := workingCopy(t, e, "en", "cards")

	transport.EXPECT().Clone(gomock.Any(), gomock.Any()).DoAndReturn(fakeClone(revisionA))
	require.NoError(t, e.Download(t.Context(), "en", "cards", nil))

	records.failSaves.Store(true)
	gomock.InOrder(
		transport.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(revisionB, nil),
		transport.EXPECT().Checkout(dir, revisionB).Return(nil),
		transport.EXPECT().Checkout(dir, revisionA).Return(nil),
	)

	status, err := e.Update(t.Context(), "en", "cards", nil)
	require.Error(t, err)
	assert.Equal(t, syncerr.CodeStorage, syncerr.CodeOf(err))
	assert.Equal(t, UpdateStatusFailed, status)

	record, err := e.Record("en", "cards")
	require.NoError(t, err)
	assert.Equal(t, revisionA, record.Revision)
}

func TestEngine_DownloadLeavesNothingWhenRecordSaveFails(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	records := &flakyRecords{RecordPersistence: store.NewFileRecordPersistence(t.TempDir())}
	records.failSaves.Store(true)
	e := openEngine(t, "https://example.com/bundle.git",
		WithTransport(transport), WithStoreOptions(store.WithPersistence(records)))

	transport.EXPECT().Clone(gomock.Any(), gomock.Any()).DoAndReturn(fakeClone(revisionA))

	err := e.Download(t.Context(), "en", "cards", nil)
	require.Error(t, err)
	assert.Equal(t, syncerr.CodeStorage, syncerr.CodeOf(err))

	assert.NoDirExists(t, workingCopy(t, e, "en", "cards"))
	assertNoStagingLeftovers(t, e)

	record, err := e.Record("en", "cards")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestEngine_UpdateSkipsCheckoutWhenTipUnchanged(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	e := openEngine(t, "https://example.com/bundle.git", WithTransport(transport))

	transport.EXPECT().Clone(gomock.Any(), gomock.Any()).DoAndReturn(fakeClone(revisionA))
	require.NoError(t, e.Download(t.Context(), "en", "cards", nil))

	transport.EXPECT().Fetch(gomock.Any(), gomock.Cond(func(opts *git.FetchOptions) bool {
		return opts.Branch == "en/cards" && opts.Directory == workingCopy(t, e, "en", "cards")
	})).Return(revisionA, nil)

	status, err := e.Update(t.Context(), "en", "cards", nil)
	require.NoError(t, err)
	assert.Equal(t, UpdateStatusUpToDate, status)
}

func TestEngine_DownloadFailureCleansUp(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	e := openEngine(t, "https://example.com/bundle.git", WithTransport(transport))

	transport.EXPECT().Clone(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, opts *git.CloneOptions) (string, error) {
			// Leave a partial clone behind the way an interrupted transfer would
			require.NoError(t, os.MkdirAll(filepath.Join(opts.Directory, ".git", "objects"), 0750))
			return "", syncerr.New(syncerr.CodeNetwork, "", "", "connection reset")
		})

	err := e.Download(t.Context(), "en", "cards", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, syncerr.ErrNetwork))
	assert.Equal(t, syncerr.CodeNetwork, syncerr.CodeOf(err))

	assert.NoDirExists(t, workingCopy(t, e, "en", "cards"))
	assertNoStagingLeftovers(t, e)
}

func TestEngine_ProgressIsForwarded(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	e := openEngine(t, "https://example.com/bundle.git", WithTransport(transport))

	transport.EXPECT().Clone(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, opts *git.CloneOptions) (string, error) {
			if !opts.OnProgress(git.Progress{TotalObjects: 4, IndexedObjects: 2, ReceivedBytes: 512}) {
				return "", syncerr.New(syncerr.CodeCancelled, "", "", "cancelled")
			}
			return fakeClone(revisionA)(ctx, opts)
		})

	var seen []git.Progress
	err := e.Download(t.Context(), "en", "cards", func(p git.Progress) bool {
		seen = append(seen, p)
		return false
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, syncerr.ErrCancelled))
	require.Len(t, seen, 1)
	assert.InDelta(t, 0.5, seen[0].Fraction(), 1e-9)
	assert.NoDirExists(t, workingCopy(t, e, "en", "cards"))
}
