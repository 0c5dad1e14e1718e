package dictionary_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oxigraph/oxigraph-go/dictionary"
	"github.com/oxigraph/oxigraph-go/kvstore"
	"github.com/oxigraph/oxigraph-go/kvstore/memkv"
)

func TestInsertGetRoundTrip(t *testing.T) {
	db := memkv.New()
	d := dictionary.New(16)

	var h dictionary.Hash128
	err := kvstore.Update(db, func(tx kvstore.BucketTx) error {
		var err error
		h, err = d.Insert(tx, "hello world")
		return err
	})
	require.NoError(t, err)

	err = kvstore.View(db, func(tx kvstore.BucketTx) error {
		s, ok, err := d.Get(tx, h)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "hello world", s)
		return nil
	})
	require.NoError(t, err)
}

func TestInsertIsIdempotent(t *testing.T) {
	db := memkv.New()
	d := dictionary.New(0)

	err := kvstore.Update(db, func(tx kvstore.BucketTx) error {
		h1, err := d.Insert(tx, "x")
		require.NoError(t, err)
		h2, err := d.Insert(tx, "x")
		require.NoError(t, err)
		require.Equal(t, h1, h2)
		return nil
	})
	require.NoError(t, err)
}

func TestContainsMissingHash(t *testing.T) {
	db := memkv.New()
	d := dictionary.New(0)
	err := kvstore.View(db, func(tx kvstore.BucketTx) error {
		ok, err := d.Contains(tx, dictionary.Hash(("never inserted")))
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestHashIsDeterministic(t *testing.T) {
	require.Equal(t, dictionary.Hash("abc"), dictionary.Hash("abc"))
	require.NotEqual(t, dictionary.Hash("abc"), dictionary.Hash("abd"))
}
