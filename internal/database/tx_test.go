package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execUpdate(ctx context.Context) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "UPDATE products SET stock_available = stock_available - 1 WHERE id = 1")
		return err
	}
}

func TestWithRetry_RetriesSerializationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products").WillReturnError(&pq.Error{Code: "40001"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	err = WithRetry(ctx, db, TxOptions{IsolationLevel: sql.LevelSerializable, MaxRetries: 3}, execUpdate(ctx))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithRetry_PermanentErrorIsNotRetried(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products").WillReturnError(&pq.Error{Code: "23514"})
	mock.ExpectRollback()

	ctx := context.Background()
	err = WithRetry(ctx, db, DefaultTxOptions(), execUpdate(ctx))

	var pqErr *pq.Error
	require.ErrorAs(t, err, &pqErr)
	assert.Equal(t, pq.ErrorCode("23514"), pqErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithRetry_ExhaustedConflictsBecomeConcurrentModification(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range 2 {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	ctx := context.Background()
	err = WithRetry(ctx, db, TxOptions{MaxRetries: 1}, func(*sql.Tx) error {
		return ErrOptimisticLockFailed
	})

	var cmErr *ConcurrentModificationError
	require.ErrorAs(t, err, &cmErr)
	assert.Equal(t, 2, cmErr.Attempts)
	assert.ErrorIs(t, err, ErrOptimisticLockFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = WithTransaction(context.Background(), db, DefaultTxOptions(), func(*sql.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"serialization", &pq.Error{Code: "40001"}, ErrorClassSerialization},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrorClassDeadlock},
		{"lock not available", &pq.Error{Code: "55P03"}, ErrorClassTransient},
		{"unique violation", &pq.Error{Code: "23505"}, ErrorClassPermanent},
		{"optimistic lock", ErrOptimisticLockFailed, ErrorClassConflict},
		{"wrapped optimistic lock", errors.Join(errors.New("update order"), ErrOptimisticLockFailed), ErrorClassConflict},
		{"no rows", sql.ErrNoRows, ErrorClassPermanent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}

func TestJSONBRoundTrip(t *testing.T) {
	type line struct {
		SKU string `json:"sku"`
		Qty int    `json:"qty"`
	}

	in := JSONB[[]line]{V: []line{{SKU: "A-1", Qty: 2}}}
	raw, err := in.Value()
	require.NoError(t, err)

	var out JSONB[[]line]
	require.NoError(t, out.Scan(raw))
	assert.Equal(t, in.V, out.V)

	var empty JSONB[*line]
	require.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty.V)

	raw, err = empty.Value()
	require.NoError(t, err)
	assert.Nil(t, raw)
}
