package encoding_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oxigraph/oxigraph-go/dictionary"
	"github.com/oxigraph/oxigraph-go/encoding"
	"github.com/oxigraph/oxigraph-go/kvstore"
	"github.com/oxigraph/oxigraph-go/kvstore/memkv"
	"github.com/oxigraph/oxigraph-go/term"
)

func roundTrip(t *testing.T, v term.Value) term.Value {
	t.Helper()
	db := memkv.New()
	dict := dictionary.New(16)
	enc := encoding.NewEncoder(dict)
	dec := encoding.NewDecoder(dict)

	var out term.Value
	err := kvstore.Update(db, func(tx kvstore.BucketTx) error {
		et, err := enc.Encode(tx, v)
		require.NoError(t, err)
		out, err = dec.Decode(tx, et)
		return err
	})
	require.NoError(t, err)
	return out
}

func TestEncodeDecodeNamedNode(t *testing.T) {
	out := roundTrip(t, term.IRI("http://example.org/s"))
	require.Equal(t, term.IRI("http://example.org/s"), out)
}

func TestEncodeDecodeSmallAndBigBlankNode(t *testing.T) {
	out := roundTrip(t, term.BlankNode("b1"))
	require.Equal(t, term.BlankNode("b1"), out)

	big := term.BlankNode("this-blank-node-identifier-is-long")
	out2 := roundTrip(t, big)
	require.Equal(t, big, out2)
}

func TestEncodeDecodeStringLiteral(t *testing.T) {
	out := roundTrip(t, term.NewString("hi"))
	require.Equal(t, term.NewString("hi"), out)

	long := term.NewString("this plain string literal is definitely longer than sixteen bytes")
	out2 := roundTrip(t, long)
	require.Equal(t, long, out2)
}

func TestEncodeDecodeLangString(t *testing.T) {
	out := roundTrip(t, term.NewLangString("bonjour", "fr"))
	require.Equal(t, term.NewLangString("bonjour", "fr"), out)
}

func TestEncodeDecodeDirLangString(t *testing.T) {
	out := roundTrip(t, term.NewDirLangString("hello", "en", term.LTR))
	lit, ok := out.(term.Literal)
	require.True(t, ok)
	require.Equal(t, term.LTR, lit.Dir)
	require.Equal(t, "en", lit.Lang)
	require.Equal(t, "hello", lit.Lexical)
}

func TestEncodeDecodeBoolean(t *testing.T) {
	out := roundTrip(t, term.NewTypedLiteral("true", term.XSDBoolean))
	require.Equal(t, term.NewTypedLiteral("true", term.XSDBoolean), out)
}

func TestEncodeDecodeIntegerCanonicalizes(t *testing.T) {
	out := roundTrip(t, term.NewTypedLiteral("+007", term.XSDInteger))
	require.Equal(t, term.NewTypedLiteral("7", term.XSDInteger), out)
}

func TestEncodeDecodeDecimal(t *testing.T) {
	out := roundTrip(t, term.NewTypedLiteral("1.50", term.XSDDecimal))
	lit := out.(term.Literal)
	require.Equal(t, term.XSDDecimal, lit.Datatype)
	require.Equal(t, "1.5", lit.Lexical)
}

func TestEncodeDecodeDateTime(t *testing.T) {
	out := roundTrip(t, term.NewTypedLiteral("2024-03-05T10:15:30Z", term.XSDDateTime))
	require.Equal(t, term.NewTypedLiteral("2024-03-05T10:15:30Z", term.XSDDateTime), out)
}

func TestEncodeDecodeDuration(t *testing.T) {
	out := roundTrip(t, term.NewTypedLiteral("P1Y2M3DT4H5M6S", term.XSDDuration))
	require.Equal(t, term.NewTypedLiteral("P1Y2M3DT4H5M6S", term.XSDDuration), out)
}

func TestEncodeDecodeOtherTypedLiteral(t *testing.T) {
	custom := term.IRI("http://example.org/custom")
	out := roundTrip(t, term.NewTypedLiteral("opaque-value", custom))
	require.Equal(t, term.NewTypedLiteral("opaque-value", custom), out)
}

func TestEncodeDecodeTripleTerm(t *testing.T) {
	tr := term.Triple{Subject: term.IRI("s"), Predicate: term.IRI("p"), Object: term.NewString("o")}
	out := roundTrip(t, tr)
	require.Equal(t, tr, out)
}

func TestEncodeDecodeDefaultGraph(t *testing.T) {
	out := roundTrip(t, term.DefaultGraph)
	require.True(t, term.IsDefaultGraph(out))
}

func TestEncodedTermEqual(t *testing.T) {
	db := memkv.New()
	dict := dictionary.New(16)
	enc := encoding.NewEncoder(dict)

	err := kvstore.Update(db, func(tx kvstore.BucketTx) error {
		a, err := enc.Encode(tx, term.NewTypedLiteral("1", term.XSDInteger))
		require.NoError(t, err)
		b, err := enc.Encode(tx, term.NewTypedLiteral("1", term.XSDInteger))
		require.NoError(t, err)
		c, err := enc.Encode(tx, term.NewTypedLiteral("2", term.XSDInteger))
		require.NoError(t, err)
		require.True(t, a.Equal(b))
		require.False(t, a.Equal(c))
		return nil
	})
	require.NoError(t, err)
}

func TestEncodeQuad(t *testing.T) {
	db := memkv.New()
	dict := dictionary.New(16)
	enc := encoding.NewEncoder(dict)
	dec := encoding.NewDecoder(dict)

	q := term.NewQuad(term.IRI("s"), term.IRI("p"), term.NewString("o"))
	err := kvstore.Update(db, func(tx kvstore.BucketTx) error {
		eq, err := enc.EncodeQuad(tx, q)
		require.NoError(t, err)
		out, err := dec.DecodeQuad(tx, eq)
		require.NoError(t, err)
		require.Equal(t, q, out)
		return nil
	})
	require.NoError(t, err)
}
