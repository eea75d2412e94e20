// Package workbook 读取上传的 xlsx 工作簿为内存网格
package workbook

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"pointlist/internal/domain"
	"pointlist/internal/grid"

	"github.com/xuri/excelize/v2"
)

// DefaultPreviewRows 预览默认行数
const DefaultPreviewRows = 20

// Workbook 已解析的工作簿
type Workbook struct {
	f *excelize.File
}

// Open 从字节解析工作簿；解析失败返回 ErrUnreadableWorkbook
func Open(data []byte) (*Workbook, error) {
	if len(data) == 0 {
		return nil, domain.ErrNoFileProvided
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreadableWorkbook, err)
	}
	return &Workbook{f: f}, nil
}

// Close 释放底层文件
func (w *Workbook) Close() error {
	return w.f.Close()
}

// SheetNames 工作表名称（按工作簿顺序）
func (w *Workbook) SheetNames() []string {
	return w.f.GetSheetList()
}

// Grid 读取工作表为网格；maxRows<=0 表示读取全部行
// 不解释表头，所有行原样进入网格；空单元格为 Missing
func (w *Workbook) Grid(sheet string, maxRows int) (*grid.Grid, error) {
	if idx, err := w.f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: sheet %q not found", domain.ErrUnreadableWorkbook, sheet)
	}

	rows, err := w.f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreadableWorkbook, err)
	}
	defer rows.Close()

	var out [][]grid.Cell
	rowNum := 0
	for rows.Next() {
		rowNum++
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", domain.ErrUnreadableWorkbook, rowNum, err)
		}
		cells := make([]grid.Cell, len(cols))
		for i, v := range cols {
			cells[i] = w.cell(sheet, i+1, rowNum, v)
		}
		out = append(out, cells)
		if maxRows > 0 && len(out) >= maxRows {
			break
		}
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreadableWorkbook, err)
	}
	return grid.New(out), nil
}

// cell 将单元格文本转换为 Cell：空为 Missing；数值型单元格转换为 Number
func (w *Workbook) cell(sheet string, col, row int, v string) grid.Cell {
	if v == "" {
		return grid.Empty()
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return grid.Str(v)
	}
	typ, err := w.f.GetCellType(sheet, name)
	if err != nil {
		return grid.Str(v)
	}
	if typ == excelize.CellTypeNumber || typ == excelize.CellTypeUnset {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return grid.Num(f)
		}
	}
	return grid.Str(v)
}

// ListSheets 解析工作簿并返回工作表名称
func ListSheets(data []byte) ([]string, error) {
	wb, err := Open(data)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.SheetNames(), nil
}

// PreviewGrid 读取工作表前 maxRows 行
func PreviewGrid(data []byte, sheet string, maxRows int) (*grid.Grid, error) {
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}
	return LoadGrid(data, sheet, maxRows)
}

// LoadGrid 读取工作表；maxRows<=0 表示全部
func LoadGrid(data []byte, sheet string, maxRows int) (*grid.Grid, error) {
	wb, err := Open(data)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Grid(sheet, maxRows)
}
