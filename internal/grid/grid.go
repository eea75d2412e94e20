// Package grid 表格的内存模型：0 起始的矩形单元格网格
package grid

import (
	"math"
	"strconv"
)

// CellKind 单元格类型
type CellKind int

const (
	Missing CellKind = iota
	String
	Number
)

// Cell 单元格值；Missing 与空串不同
type Cell struct {
	Kind CellKind
	Str  string
	Num  float64
}

func Str(s string) Cell { return Cell{Kind: String, Str: s} }

func Num(f float64) Cell { return Cell{Kind: Number, Num: f} }

func Empty() Cell { return Cell{Kind: Missing} }

func (c Cell) IsMissing() bool { return c.Kind == Missing }

// String 物化为字符串，Missing 为空串
func (c Cell) String() string {
	switch c.Kind {
	case String:
		return c.Str
	case Number:
		if math.IsInf(c.Num, 0) || math.IsNaN(c.Num) {
			return ""
		}
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// Grid 不可变的矩形网格
type Grid struct {
	cells [][]Cell
	cols  int
}

// New 由行构造网格，短行以 Missing 补齐；会复制输入
func New(rows [][]Cell) *Grid {
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	cells := make([][]Cell, len(rows))
	for i, r := range rows {
		row := make([]Cell, cols)
		copy(row, r)
		cells[i] = row
	}
	return &Grid{cells: cells, cols: cols}
}

// Rows 行数
func (g *Grid) Rows() int { return len(g.cells) }

// Cols 列数
func (g *Grid) Cols() int { return g.cols }

// At 读取单元格，越界返回 Missing
func (g *Grid) At(row, col int) Cell {
	if row < 0 || row >= len(g.cells) || col < 0 || col >= g.cols {
		return Empty()
	}
	return g.cells[row][col]
}

// Row 返回行的副本
func (g *Grid) Row(row int) []Cell {
	if row < 0 || row >= len(g.cells) {
		return nil
	}
	out := make([]Cell, g.cols)
	copy(out, g.cells[row])
	return out
}

// StringRows 物化为字符串二维数组（Missing 为空串），用于预览
func (g *Grid) StringRows() [][]string {
	out := make([][]string, len(g.cells))
	for i, r := range g.cells {
		row := make([]string, g.cols)
		for j, c := range r {
			row[j] = c.String()
		}
		out[i] = row
	}
	return out
}
