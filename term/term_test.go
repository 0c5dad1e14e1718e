package term

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLiteralString(t *testing.T) {
	require.Equal(t, `"abc"`, NewString("abc").String())
	require.Equal(t, `"abc"@en`, NewLangString("abc", "en").String())
	require.Equal(t, `"abc"@en--ltr`, NewDirLangString("abc", "en", LTR).String())
	require.Equal(t, `"1"^^<http://www.w3.org/2001/XMLSchema#integer>`, NewTypedLiteral("1", XSDInteger).String())
}

func TestQuadGetSet(t *testing.T) {
	q := NewQuad(IRI("s"), IRI("p"), IRI("o"))
	require.True(t, q.InDefaultGraph())
	require.Equal(t, IRI("s"), q.Get(Subject))
	require.Equal(t, IRI("p"), q.Get(Predicate))

	q2 := q.Set(Object, IRI("o2")).Set(Graph, IRI("g"))
	require.Equal(t, IRI("o2"), q2.Get(Object))
	require.False(t, q2.InDefaultGraph())
}

func TestQuadSetInvalidPredicatePanics(t *testing.T) {
	q := NewQuad(IRI("s"), IRI("p"), IRI("o"))
	require.Panics(t, func() { q.Set(Predicate, BlankNode("x")) })
}

func TestIsDefaultGraph(t *testing.T) {
	require.True(t, IsDefaultGraph(DefaultGraph))
	require.False(t, IsDefaultGraph(IRI("http://example.org/g")))
}

func TestTripleTermString(t *testing.T) {
	tr := Triple{Subject: IRI("s"), Predicate: IRI("p"), Object: IRI("o")}
	require.Equal(t, "<<<s> <p> <o>>>", tr.String())
}
