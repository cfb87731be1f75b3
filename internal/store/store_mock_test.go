package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/store"
	"github.com/stacklok/toolhive-assetsync/internal/store/mocks"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

func TestStore_CommitSaveFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	key := naming.ResourceKey{Locale: "jp", Type: "movie"}
	persistence := mocks.NewMockRecordPersistence(ctrl)
	persistence.EXPECT().
		SaveRecord(key, gomock.Any()).
		Return(errors.New("disk full"))

	s, err := store.New(t.TempDir(), store.WithPersistence(persistence))
	require.NoError(t, err)

	var rolledBack string
	record, err := s.Commit(key, "https://example.com/bundles.git", func(string) (string, error) {
		return "3333333333333333333333333333333333333333", nil
	}, func(dir string) error {
		rolledBack = dir
		return nil
	})
	require.Error(t, err)
	assert.Nil(t, record)
	assert.True(t, errors.Is(err, syncerr.ErrStorage))
	assert.Equal(t, s.WorkingCopyPath(key), rolledBack)
}

func TestStore_AdoptSaveFailureRestoresStaging(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	key := naming.ResourceKey{Locale: "kr", Type: "basic"}
	persistence := mocks.NewMockRecordPersistence(ctrl)
	persistence.EXPECT().
		SaveRecord(key, gomock.Any()).
		Return(errors.New("disk full"))

	s, err := store.New(t.TempDir(), store.WithPersistence(persistence))
	require.NoError(t, err)

	staging, err := s.NewStagingDir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(staging, ".git"), 0750))

	record, err := s.Adopt(key, "https://example.com/bundles.git", staging, "5555555555555555555555555555555555555555")
	require.Error(t, err)
	assert.Nil(t, record)
	assert.Equal(t, syncerr.CodeStorage, syncerr.CodeOf(err))

	assert.False(t, s.Exists(key))
	assert.NoDirExists(t, s.WorkingCopyPath(key))
	assert.DirExists(t, filepath.Join(staging, ".git"))
}

func TestStore_ListFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	persistence := mocks.NewMockRecordPersistence(ctrl)
	persistence.EXPECT().ListRecords().Return(nil, os.ErrPermission)

	s, err := store.New(t.TempDir(), store.WithPersistence(persistence))
	require.NoError(t, err)

	records, err := s.List()
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Equal(t, syncerr.CodeStorage, syncerr.CodeOf(err))
}

func TestStore_RecordIgnoresRecordWithoutWorkingCopy(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	key := naming.ResourceKey{Locale: "tw", Type: "sound"}
	persistence := mocks.NewMockRecordPersistence(ctrl)
	persistence.EXPECT().LoadRecord(key).Return(&store.Record{
		Locale:   key.Locale,
		Type:     key.Type,
		Revision: "4444444444444444444444444444444444444444",
	}, nil)

	root := t.TempDir()
	s, err := store.New(root, store.WithPersistence(persistence))
	require.NoError(t, err)
	require.NoDirExists(t, filepath.Join(root, key.Locale, key.Type))

	record, err := s.Record(key)
	require.NoError(t, err)
	assert.Nil(t, record)
}
