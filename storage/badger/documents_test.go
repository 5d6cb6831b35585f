package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentBasics(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		docRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	t.Run("add assigns IDs and timestamps", func(t *testing.T) {
		docs, err := docRepo.AddDocuments(ctx,
			&core.Document{Content: "first"},
			&core.Document{Content: "second"},
		)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.NotZero(t, docs[0].Id)
		assert.NotZero(t, docs[1].Id)
		assert.NotEqual(t, docs[0].Id, docs[1].Id)
		assert.False(t, docs[0].CreatedAt.IsZero())
	})

	t.Run("explicit ID and timestamp preserved", func(t *testing.T) {
		created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		docs, err := docRepo.AddDocuments(ctx, &core.Document{
			Id:        777,
			Content:   "explicit",
			CreatedAt: created,
		})
		require.NoError(t, err)
		assert.Equal(t, core.ID(777), docs[0].Id)
		assert.Equal(t, created, docs[0].CreatedAt)

		got, err := docRepo.GetDocument(ctx, 777)
		require.NoError(t, err)
		assert.Equal(t, "explicit", got.Content)
		assert.Equal(t, created, got.CreatedAt)
	})

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		_, err := docRepo.GetDocument(ctx, 123456)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestGetDocuments_SkipsMissing(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		docRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()
	added, err := docRepo.AddDocuments(ctx, &core.Document{Content: "present"})
	require.NoError(t, err)

	docs, err := docRepo.GetDocuments(ctx, added[0].Id, 99999)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, added[0].Id, docs[0].Id)
}

func TestDeleteDocuments(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		docRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()
	added, err := docRepo.AddDocuments(ctx, &core.Document{Content: "to delete"})
	require.NoError(t, err)

	require.NoError(t, docRepo.DeleteDocuments(ctx, added[0].Id))
	_, err = docRepo.GetDocument(ctx, added[0].Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, docRepo.DeleteDocuments(ctx, added[0].Id), storage.ErrNotFound)
}

func TestCountDocuments(t *testing.T) {
	docRepo, _, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		docRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()
	count, err := docRepo.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = docRepo.AddDocuments(ctx,
		&core.Document{Content: "a"},
		&core.Document{Content: "b"},
		&core.Document{Content: "c"},
	)
	require.NoError(t, err)

	count, err = docRepo.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
