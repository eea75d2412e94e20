package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PadsShortRowsWithMissing(t *testing.T) {
	g := New([][]Cell{
		{Str("a"), Str("b"), Str("c")},
		{Str("d")},
	})

	assert.Equal(t, 2, g.Rows())
	assert.Equal(t, 3, g.Cols())
	assert.True(t, g.At(1, 2).IsMissing())
	assert.True(t, g.At(5, 0).IsMissing(), "out of range reads are missing")
}

func TestNew_CopiesInput(t *testing.T) {
	rows := [][]Cell{{Str("a")}}
	g := New(rows)
	rows[0][0] = Str("changed")

	assert.Equal(t, "a", g.At(0, 0).String())

	row := g.Row(0)
	row[0] = Str("mutated")
	assert.Equal(t, "a", g.At(0, 0).String())
}

func TestCell_String(t *testing.T) {
	assert.Equal(t, "", Empty().String())
	assert.Equal(t, "x", Str("x").String())
	assert.Equal(t, "12", Num(12).String())
	assert.Equal(t, "1.5", Num(1.5).String())
}

func TestStringRows_MissingAndEmpty(t *testing.T) {
	g := New([][]Cell{{Str("a"), Empty()}, {Str(""), Num(2)}})
	assert.True(t, g.At(0, 1).IsMissing())
	assert.False(t, g.At(1, 0).IsMissing())
	assert.Equal(t, [][]string{{"a", ""}, {"", "2"}}, g.StringRows())
}

func TestFillDown(t *testing.T) {
	g := New([][]Cell{
		{Str("device")},
		{Str("A")},
		{Empty()},
		{Empty()},
		{Str("B")},
		{Empty()},
	})

	col := FillDown(g, 0, 1, g.Rows())

	got := make([]string, len(col))
	for i, c := range col {
		got[i] = c.String()
	}
	assert.Equal(t, []string{"A", "A", "A", "B", "B"}, got)
	assert.True(t, g.At(2, 0).IsMissing(), "grid must not be mutated")
}

func TestFillDown_LeadingMissingStaysMissing(t *testing.T) {
	g := New([][]Cell{
		{Str("header")},
		{Empty()},
		{Str("A")},
		{Empty()},
	})

	col := FillDown(g, 0, 1, g.Rows())

	require.Len(t, col, 3)
	assert.True(t, col[0].IsMissing())
	assert.Equal(t, "A", col[1].String())
	assert.Equal(t, "A", col[2].String())
}

func TestFillDown_DoesNotReadAboveWindow(t *testing.T) {
	g := New([][]Cell{
		{Str("header")},
		{Empty()},
	})

	col := FillDown(g, 0, 1, 2)
	require.Len(t, col, 1)
	assert.True(t, col[0].IsMissing(), "header row must not leak into the data region")
}

func TestFillDown_ClampsWindow(t *testing.T) {
	g := New([][]Cell{{Str("a")}, {Empty()}})
	assert.Len(t, FillDown(g, 0, -3, 99), 2)
	assert.Empty(t, FillDown(g, 0, 2, 1))
}
