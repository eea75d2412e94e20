package workbook

import (
	"bytes"
	"errors"
	"testing"

	"pointlist/internal/domain"
	"pointlist/internal/grid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("IO List")
	require.NoError(t, err)

	rows := [][]any{
		{"Device", "Item", "Point", "Signal"},
		{"ME1", 1, "TempSensor\n温度传感器", "Analog Input"},
		{nil, 2, "Pump Run", "On/Off"},
		{nil, nil, nil, nil},
		{"GE1", 3, "Speed", "AI"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("IO List", cell, &r))
	}
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "cover"))

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestListSheets(t *testing.T) {
	sheets, err := ListSheets(buildWorkbook(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"Sheet1", "IO List"}, sheets)
}

func TestLoadGrid(t *testing.T) {
	g, err := LoadGrid(buildWorkbook(t), "IO List", 0)
	require.NoError(t, err)

	assert.Equal(t, 4, g.Cols())
	assert.Equal(t, "ME1", g.At(1, 0).String())
	assert.Equal(t, grid.Number, g.At(1, 1).Kind)
	assert.Equal(t, "1", g.At(1, 1).String())
	assert.Equal(t, "TempSensor\n温度传感器", g.At(1, 2).String())
	assert.True(t, g.At(2, 0).IsMissing())
	assert.True(t, g.At(3, 2).IsMissing())
	assert.Equal(t, "GE1", g.At(g.Rows()-1, 0).String())
}

func TestPreviewGrid_LimitsRows(t *testing.T) {
	g, err := PreviewGrid(buildWorkbook(t), "IO List", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Rows())
	assert.Equal(t, []string{"Device", "Item", "Point", "Signal"}, g.StringRows()[0])
}

func TestLoadGrid_UnknownSheet(t *testing.T) {
	_, err := LoadGrid(buildWorkbook(t), "nope", 0)
	assert.True(t, errors.Is(err, domain.ErrUnreadableWorkbook))
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(nil)
	assert.True(t, errors.Is(err, domain.ErrNoFileProvided))

	_, err = Open([]byte("not a workbook"))
	assert.True(t, errors.Is(err, domain.ErrUnreadableWorkbook))
}
