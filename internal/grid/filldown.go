package grid

// FillDown 对 [from, to) 行窗口内的一列做向下填充：
// Missing 单元格取窗口内最近的前一个非 Missing 值；窗口内首个非 Missing 之前的单元格保持 Missing。
// 返回新切片，不修改网格；窗口越界部分被截断。
func FillDown(g *Grid, col, from, to int) []Cell {
	if from < 0 {
		from = 0
	}
	if to > g.Rows() {
		to = g.Rows()
	}
	if to <= from {
		return []Cell{}
	}

	out := make([]Cell, to-from)
	last := Empty()
	for r := from; r < to; r++ {
		c := g.At(r, col)
		if c.IsMissing() {
			out[r-from] = last
			continue
		}
		last = c
		out[r-from] = c
	}
	return out
}
