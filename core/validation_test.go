package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocument(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		doc := &Document{Content: "some text"}
		assert.NoError(t, ValidateDocument(doc))
	})

	t.Run("zero ID is valid", func(t *testing.T) {
		doc := &Document{Id: 0, Content: "text"}
		assert.NoError(t, ValidateDocument(doc))
	})

	t.Run("nil document", func(t *testing.T) {
		err := ValidateDocument(nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("empty content", func(t *testing.T) {
		err := ValidateDocument(&Document{Title: "titled but empty"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidDocument)
		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("future timestamp", func(t *testing.T) {
		doc := &Document{
			Content:   "text",
			CreatedAt: time.Now().Add(time.Hour),
		}
		err := ValidateDocument(doc)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidTimestamp)
	})
}

func TestValidateQuery(t *testing.T) {
	t.Run("valid query", func(t *testing.T) {
		query := &Query{Text: "search terms", Page: 0, PageSize: 10}
		assert.NoError(t, ValidateQuery(query))
	})

	t.Run("empty text is valid", func(t *testing.T) {
		query := &Query{Text: "", PageSize: 10}
		assert.NoError(t, ValidateQuery(query))
	})

	t.Run("nil query", func(t *testing.T) {
		assert.ErrorIs(t, ValidateQuery(nil), ErrInvalidQuery)
	})

	t.Run("negative page", func(t *testing.T) {
		err := ValidateQuery(&Query{Text: "q", Page: -1, PageSize: 10})
		assert.ErrorIs(t, err, ErrInvalidQuery)
		assert.ErrorIs(t, err, ErrInvalidPage)
	})

	t.Run("zero page size", func(t *testing.T) {
		err := ValidateQuery(&Query{Text: "q", PageSize: 0})
		assert.ErrorIs(t, err, ErrInvalidQuery)
		assert.ErrorIs(t, err, ErrInvalidPageSize)
	})

	t.Run("negative limit", func(t *testing.T) {
		err := ValidateQuery(&Query{Text: "q", PageSize: 10, Limit: -5})
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})
}
