package memkv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oxigraph/oxigraph-go/kvstore"
	"github.com/oxigraph/oxigraph-go/kvstore/memkv"
)

func TestPutGetDel(t *testing.T) {
	db := memkv.New()

	err := kvstore.Update(db, func(tx kvstore.BucketTx) error {
		b, err := tx.Bucket([]byte("b"), kvstore.OpUpsert)
		require.NoError(t, err)
		return b.Put([]byte("k"), []byte("v"))
	})
	require.NoError(t, err)

	err = kvstore.View(db, func(tx kvstore.BucketTx) error {
		b, err := tx.Bucket([]byte("b"), kvstore.OpGet)
		require.NoError(t, err)
		v, err := b.Get([]byte("k"))
		require.NoError(t, err)
		require.Equal(t, []byte("v"), v)
		return nil
	})
	require.NoError(t, err)

	err = kvstore.Update(db, func(tx kvstore.BucketTx) error {
		b, err := tx.Bucket([]byte("b"), kvstore.OpGet)
		require.NoError(t, err)
		return b.Del([]byte("k"))
	})
	require.NoError(t, err)

	err = kvstore.View(db, func(tx kvstore.BucketTx) error {
		b, err := tx.Bucket([]byte("b"), kvstore.OpGet)
		require.NoError(t, err)
		_, err = b.Get([]byte("k"))
		require.ErrorIs(t, err, kvstore.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestBucketOpSemantics(t *testing.T) {
	db := memkv.New()
	err := kvstore.Update(db, func(tx kvstore.BucketTx) error {
		_, err := tx.Bucket([]byte("missing"), kvstore.OpGet)
		require.ErrorIs(t, err, kvstore.ErrNoBucket)

		_, err = tx.Bucket([]byte("new"), kvstore.OpCreate)
		require.NoError(t, err)

		_, err = tx.Bucket([]byte("new"), kvstore.OpCreate)
		require.ErrorIs(t, err, kvstore.ErrBucketExists)
		return nil
	})
	require.NoError(t, err)
}

func TestScanPrefix(t *testing.T) {
	db := memkv.New()
	err := kvstore.Update(db, func(tx kvstore.BucketTx) error {
		b, err := tx.Bucket([]byte("b"), kvstore.OpUpsert)
		require.NoError(t, err)
		require.NoError(t, b.Put([]byte("a/1"), []byte("1")))
		require.NoError(t, b.Put([]byte("a/2"), []byte("2")))
		require.NoError(t, b.Put([]byte("z/1"), []byte("3")))
		return nil
	})
	require.NoError(t, err)

	err = kvstore.View(db, func(tx kvstore.BucketTx) error {
		b, err := tx.Bucket([]byte("b"), kvstore.OpGet)
		require.NoError(t, err)
		var got []string
		require.NoError(t, kvstore.Each(context.Background(), b, []byte("a/"), func(k, v []byte) error {
			got = append(got, string(k))
			return nil
		}))
		require.Equal(t, []string{"a/1", "a/2"}, got)
		return nil
	})
	require.NoError(t, err)
}
