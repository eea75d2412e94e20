package mapping

import (
	"encoding/json"
	"errors"
	"testing"

	"pointlist/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CoercesIndexes(t *testing.T) {
	m, err := New(map[string]any{
		"device_group":  0,
		"point_name":    float64(3),
		"signal_type":   "5",
		"alarm_type":    nil,
		"unit":          "",
		"collect_type":  " 7 ",
		"business_type": "010",
		"range":         "08",
		"related_point": json.Number("4"),
	}, Options{})
	require.NoError(t, err)

	idx, ok := m.Resolve(DeviceGroup)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, _ = m.Resolve(PointName)
	assert.Equal(t, 3, idx)
	idx, _ = m.Resolve(SignalType)
	assert.Equal(t, 5, idx)
	idx, _ = m.Resolve("collect_type")
	assert.Equal(t, 7, idx)
	idx, _ = m.Resolve("business_type")
	assert.Equal(t, 10, idx, "leading zero is decimal, not octal")
	idx, _ = m.Resolve("range")
	assert.Equal(t, 8, idx)
	idx, _ = m.Resolve("related_point")
	assert.Equal(t, 4, idx)

	assert.False(t, m.IsMapped(AlarmType), "null means unmapped")
	assert.False(t, m.IsMapped("unit"), "empty string means unmapped")
}

func TestNew_RejectsInvalidIndexes(t *testing.T) {
	cases := map[string]any{
		"negative int":    -1,
		"negative string": "-2",
		"fraction":        1.5,
		"word":            "abc",
		"bool":            true,
		"hex string":      "0x1",
		"underscore":      "1_0",
		"decimal string":  "2.0",
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(map[string]any{"point_name": v}, Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidMapping))

			var me *domain.MappingError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, "point_name", me.Key)
		})
	}
}

func TestNew_UnknownKeys(t *testing.T) {
	m, err := New(map[string]any{"group_name": 4}, Options{})
	require.NoError(t, err)
	assert.True(t, m.IsMapped("group_name"), "permissive mode keeps unknown keys as pass-through")

	_, err = New(map[string]any{"group_name": 4}, Options{Strict: true})
	assert.True(t, errors.Is(err, domain.ErrInvalidMapping))
}

func TestKeys_DeterministicOrder(t *testing.T) {
	m, err := New(map[string]any{
		"zeta":         9,
		"alarm_type":   1,
		"ip_address":   8,
		"signal_type":  2,
		"device_group": 0,
	}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []FieldKey{DeviceGroup, SignalType, AlarmType, "ip_address", "zeta"}, m.Keys())
}

func TestValidate_ColumnOutOfRange(t *testing.T) {
	m, err := New(map[string]any{"point_name": 1, "signal_type": 4}, Options{})
	require.NoError(t, err)

	assert.NoError(t, m.Validate(5))

	err = m.Validate(4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrColumnOutOfRange))

	var me *domain.MappingError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "signal_type", me.Key)
	assert.Equal(t, 4, me.Index)
}

func TestNilMapping(t *testing.T) {
	var m *FieldMapping
	assert.False(t, m.IsMapped(PointName))
	assert.Empty(t, m.Keys())
}

func TestParsePreset(t *testing.T) {
	p, err := ParsePreset([]byte(`
sheet: IO List
header_row: 2
mapping:
  device_group: 0
  point_name: "3"
  signal_type: 5
  unit:
`))
	require.NoError(t, err)
	assert.Equal(t, "IO List", p.Sheet)
	assert.Equal(t, 2, p.HeaderRow)

	m, err := p.FieldMapping()
	require.NoError(t, err)
	idx, ok := m.Resolve(PointName)
	assert.True(t, ok)
	assert.Equal(t, 3, idx)
	assert.False(t, m.IsMapped("unit"))
}

func TestParsePreset_NegativeHeader(t *testing.T) {
	_, err := ParsePreset([]byte("header_row: -1\n"))
	assert.Error(t, err)
}

func TestParseIndex(t *testing.T) {
	i, ok, err := ParseIndex("header_row_index", "02")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok, err = ParseIndex("header_row_index", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ParseIndex("header_row_index", "-1")
	var me *domain.MappingError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "header_row_index", me.Key)
	assert.True(t, errors.Is(err, domain.ErrInvalidMapping))
}
