package export

import (
	"bytes"
	"fmt"

	"pointlist/internal/domain"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ContentType xlsx MIME 类型
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DefaultFileName 导出文件名
const DefaultFileName = "standard_points.xlsx"

const defaultSheet = "Sheet1"

// Writer 将 ExportPlan 序列化为 xlsx
type Writer struct {
	logger *zap.Logger
}

// NewWriter 创建 Writer
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{logger: logger}
}

// Export 生成导出计划并写出工作簿
func (w *Writer) Export(records []domain.NormalizedRecord, ship domain.ShipMetadata) ([]byte, *ExportPlan, error) {
	plan, err := Plan(records, ship)
	if err != nil {
		return nil, nil, err
	}
	data, err := w.Write(plan)
	if err != nil {
		return nil, nil, err
	}
	return data, plan, nil
}

// Write 写出工作簿字节
func (w *Writer) Write(plan *ExportPlan) ([]byte, error) {
	if plan == nil || len(plan.Sheets) == 0 {
		return nil, domain.ErrEmptyExport
	}

	f := excelize.NewFile()
	// Note: Don't defer Close() here, WriteTo needs the file to be open

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 默认的 Sheet1 重命名为第一个工作表（说明页），其余工作表依次新建
	for i, sheet := range plan.Sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to rename default sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %q: %w", sheet.Name, err)
		}
		if sheet.Group != "" && sheet.Group != sheet.Name {
			w.logger.Warn("group sheet renamed to satisfy Excel naming rules",
				zap.String("group", sheet.Group),
				zap.String("sheet", sheet.Name),
			)
		}

		if err := w.writeSheet(f, sheet, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *Writer) writeSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	maxCols := 0
	for bi, block := range sheet.Blocks {
		if bi+1 < len(sheet.Blocks) {
			if next := sheet.Blocks[bi+1].Row; block.Row+len(block.Rows) > next {
				w.logger.Warn("sheet block overlaps the next block",
					zap.String("sheet", sheet.Name),
					zap.Int("block_row", block.Row),
					zap.Int("rows", len(block.Rows)),
					zap.Int("next_block_row", next),
				)
			}
		}

		for ri, row := range block.Rows {
			if row == nil {
				continue
			}
			if len(row) > maxCols {
				maxCols = len(row)
			}
			excelRow := block.Row + ri + 1
			start, err := excelize.CoordinatesToCellName(1, excelRow)
			if err != nil {
				return fmt.Errorf("failed to convert coordinates: %w", err)
			}
			r := row
			if err := f.SetSheetRow(sheet.Name, start, &r); err != nil {
				return fmt.Errorf("failed to write row %d of sheet %q: %w", excelRow, sheet.Name, err)
			}
			if ri == 0 {
				end, err := excelize.CoordinatesToCellName(len(row), excelRow)
				if err != nil {
					return fmt.Errorf("failed to convert coordinates: %w", err)
				}
				if err := f.SetCellStyle(sheet.Name, start, end, headerStyle); err != nil {
					return fmt.Errorf("failed to set header style: %w", err)
				}
			}
		}
	}

	if sheet.Name == DescriptionSheet || maxCols == 0 {
		return nil
	}

	// 分组工作表：冻结表头 + 列宽
	for i := 1; i <= maxCols; i++ {
		col, err := excelize.ColumnNumberToName(i)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		width := 14.0
		if i == 4 || i == 5 {
			width = 28
		}
		if err := f.SetColWidth(sheet.Name, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := f.SetPanes(sheet.Name, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}
