package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/helpcomp/merchant-category-resolver/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := NewWithDB(db)
	st.now = func() time.Time { return fixedNow }
	return st, mock
}

func TestLookupMiss(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery("SELECT category_name, category_id, confidence").
		WithArgs("swiggy").
		WillReturnError(sql.ErrNoRows)

	res, err := st.Lookup(context.Background(), "swiggy")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupHit(t *testing.T) {
	st, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"category_name", "category_id", "confidence"}).
		AddRow("Food & Dining", "12", 0.9)
	mock.ExpectQuery("SELECT category_name, category_id, confidence").
		WithArgs("swiggy").
		WillReturnRows(rows)

	res, err := st.Lookup(context.Background(), "swiggy")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Food & Dining", res.CategoryName)
	assert.Equal(t, "12", res.CategoryID)
	assert.Equal(t, 0.9, res.Confidence)
	assert.Equal(t, resolver.SourceCache, res.Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupDefaultsMissingConfidence(t *testing.T) {
	st, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"category_name", "category_id", "confidence"}).
		AddRow("Transport", nil, nil)
	mock.ExpectQuery("SELECT category_name, category_id, confidence").
		WithArgs("uber").
		WillReturnRows(rows)

	res, err := st.Lookup(context.Background(), "uber")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Empty(t, res.CategoryID)
	assert.Equal(t, defaultHitConfidence, res.Confidence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupError(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery("SELECT category_name, category_id, confidence").
		WithArgs("swiggy").
		WillReturnError(sql.ErrConnDone)

	res, err := st.Lookup(context.Background(), "swiggy")
	assert.Error(t, err)
	assert.Nil(t, res)
}

func TestTouch(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectExec("UPDATE merchant_categories").
		WithArgs(fixedNow, "swiggy").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, st.Touch(context.Background(), "swiggy"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO merchant_categories").
		WithArgs("swiggy order 1234", "Swiggy Order #1234", "Food & Dining", "12",
			0.9, "language-model", fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := st.Upsert(context.Background(), "Swiggy Order #1234", "swiggy order 1234", resolver.Resolution{
		CategoryName: "Food & Dining",
		CategoryID:   "12",
		Confidence:   0.9,
		Source:       resolver.SourceLanguageModel,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertNullCategoryID(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO merchant_categories").
		WithArgs("uber", "UBER", "Transport", nil, 0.7, "search", fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := st.Upsert(context.Background(), "UBER", "uber", resolver.Resolution{
		CategoryName: "Transport",
		Confidence:   0.7,
		Source:       resolver.SourceSearch,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	st, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"count", "hits"}).AddRow(42, 137)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(rows)

	merchants, hits, err := st.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), merchants)
	assert.Equal(t, int64(137), hits)
}
