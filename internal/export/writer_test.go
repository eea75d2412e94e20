package export_test

import (
	"testing"

	"pointlist/internal/domain"
	"pointlist/internal/export"
	"pointlist/internal/grid"
	"pointlist/internal/mapping"
	"pointlist/internal/normalize"
	"pointlist/internal/workbook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fromIndexes 由字段 -> 整数列索引构造映射
func fromIndexes(idx map[mapping.FieldKey]int) (*mapping.FieldMapping, error) {
	raw := make(map[string]any, len(idx))
	for k, v := range idx {
		raw[string(k)] = v
	}
	return mapping.New(raw, mapping.Options{})
}

func TestWriter_EmptyPlan(t *testing.T) {
	w := export.NewWriter(zap.NewNop())
	_, _, err := w.Export(nil, domain.ShipMetadata{})
	assert.ErrorIs(t, err, domain.ErrEmptyExport)
}

func TestWriter_SheetLayout(t *testing.T) {
	r1 := domain.NewNormalizedRecord()
	r1.Set(domain.FieldDeviceGroup, "ME1")
	r1.Set(domain.FieldNameEN, "Temp")
	r1.Set(domain.ExtGroupName, "Engine")
	r2 := domain.NewNormalizedRecord()
	r2.Set(domain.FieldNameEN, "Level")

	data, plan, err := export.NewWriter(nil).Export([]domain.NormalizedRecord{r1, r2}, domain.ShipMetadata{Name: "Ocean One"})
	require.NoError(t, err)
	require.Len(t, plan.Sheets, 3)

	sheets, err := workbook.ListSheets(data)
	require.NoError(t, err)
	assert.Equal(t, []string{export.DescriptionSheet, "Engine", export.DefaultGroupName}, sheets)

	desc, err := workbook.LoadGrid(data, export.DescriptionSheet, 0)
	require.NoError(t, err)
	assert.Equal(t, "船只名称(Name)", desc.At(0, 0).String())
	assert.Equal(t, "Ocean One", desc.At(1, 0).String())
	assert.Equal(t, "ID", desc.At(3, 0).String())
	assert.Equal(t, "1", desc.At(4, 0).String())
	assert.Equal(t, "Engine", desc.At(4, 1).String())
	assert.Equal(t, "id", desc.At(8, 0).String())
	assert.Equal(t, "ME1", desc.At(9, 1).String())
	assert.Equal(t, export.DefaultDeviceName, desc.At(10, 1).String())
	assert.Equal(t, "2", desc.At(10, 5).String(), "group_id of the unnamed device")

	engine, err := workbook.LoadGrid(data, "Engine", 0)
	require.NoError(t, err)
	assert.Equal(t, export.PointHeaders(), engine.StringRows()[0])
	assert.Equal(t, "ME1", engine.At(1, 0).String())
	assert.Equal(t, "Temp", engine.At(1, 3).String())
}

func TestTransformExportRoundTrip(t *testing.T) {
	s, m := grid.Str, grid.Empty()
	g := grid.New([][]grid.Cell{
		{s("Device"), s("Point"), s("Signal"), s("Alarm")},
		{s("ME1"), s("Temp\n温度"), s("Analog"), m},
		{m, s("Run"), s("On/Off"), m},
		{m, m, m, m},
		{s("GE1"), s("Press"), s("Analog"), s("H")},
		{s(""), s("Level"), s("AI"), m},
	})
	fm, err := fromIndexes(map[mapping.FieldKey]int{
		mapping.DeviceGroup: 0,
		mapping.PointName:   1,
		mapping.SignalType:  2,
		mapping.AlarmType:   3,
	})
	require.NoError(t, err)

	res, err := normalize.Normalize(g, 0, fm)
	require.NoError(t, err)
	require.Len(t, res.Records, 4)

	data, _, err := export.NewWriter(zap.NewNop()).Export(res.Records, domain.ShipMetadata{})
	require.NoError(t, err)

	type triple struct{ device, name, business string }
	want := map[triple]bool{}
	for _, r := range res.Records {
		want[triple{export.DeviceName(r), r.Get(domain.FieldNameEN), r.Get(domain.FieldBusinessType)}] = true
	}

	sheet, err := workbook.LoadGrid(data, export.DefaultGroupName, 0)
	require.NoError(t, err)
	got := map[triple]bool{}
	for row := 1; row < sheet.Rows(); row++ {
		if sheet.At(row, 0).IsMissing() {
			continue
		}
		got[triple{sheet.At(row, 0).String(), sheet.At(row, 3).String(), sheet.At(row, 8).String()}] = true
	}
	assert.Equal(t, want, got)
	assert.True(t, got[triple{"GE1", "Press", "ALARM"}])
	assert.True(t, got[triple{export.DefaultDeviceName, "Level", ""}], "explicitly empty device name gets the default")
}
