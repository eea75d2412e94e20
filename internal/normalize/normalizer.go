// Package normalize 点表标准化：按列映射把原始网格转换为标准测点记录
package normalize

import (
	"strings"

	"pointlist/internal/domain"
	"pointlist/internal/grid"
	"pointlist/internal/mapping"
)

// 信号类型推断结果
const (
	DataTypeDouble      = "DOUBLE"
	BusinessTypeDigital = "DIGITAL"
	BusinessTypeState   = "STATE"
	BusinessTypeAlarm   = "ALARM"
)

var (
	analogTokens = []string{"analog"}
	stateTokens  = []string{"on", "off", "switch"}
)

// Result 标准化结果；Raw 与 Records 按纳入的数据行逐行对应
type Result struct {
	Raw     []domain.RawPreviewRecord `json:"raw_data"`
	Records []domain.NormalizedRecord `json:"clean_data"`
}

// Normalize 对 headerRow 之后的所有行做标准化
// 不修改网格，相同输入总是得到相同输出
func Normalize(g *grid.Grid, headerRow int, m *mapping.FieldMapping) (*Result, error) {
	if headerRow < 0 {
		return nil, domain.NewInvalidMapping("header_row_index", "must be non-negative")
	}
	if err := m.Validate(g.Cols()); err != nil {
		return nil, err
	}

	from, to := headerRow+1, g.Rows()
	res := &Result{
		Raw:     []domain.RawPreviewRecord{},
		Records: []domain.NormalizedRecord{},
	}
	if from >= to {
		return res, nil
	}

	// 设备名列需要在整个数据区上一次性向下填充，跨越中间的空行
	var devices []grid.Cell
	devCol, hasDev := m.Resolve(mapping.DeviceGroup)
	if hasDev {
		devices = grid.FillDown(g, devCol, from, to)
	}
	ptCol, hasPt := m.Resolve(mapping.PointName)
	sigCol, hasSig := m.Resolve(mapping.SignalType)

	for r := from; r < to; r++ {
		if hasPt && g.At(r, ptCol).IsMissing() {
			continue
		}

		row := rowView{cells: g.Row(r)}
		if hasDev {
			row.device = devices[r-from]
			row.hasDevice = true
		}

		raw := domain.RawPreviewRecord{}
		if hasDev {
			raw[domain.RawDevice] = row.device.String()
		}
		if hasPt {
			raw[domain.RawPoint] = g.At(r, ptCol).String()
		}
		if hasSig {
			raw[domain.RawSignal] = g.At(r, sigCol).String()
		}
		res.Raw = append(res.Raw, raw)
		res.Records = append(res.Records, buildRecord(row, m))
	}
	return res, nil
}

// rowView 一行数据，设备名列使用填充后的值
type rowView struct {
	cells     []grid.Cell
	device    grid.Cell
	hasDevice bool
}

func (v rowView) value(key mapping.FieldKey, col int) string {
	if key == mapping.DeviceGroup && v.hasDevice {
		return v.device.String()
	}
	if col < 0 || col >= len(v.cells) {
		return ""
	}
	return v.cells[col].String()
}

// buildRecord 两阶段派生：
// 阶段一：透传字段、名称拆分、设备名、项目编号、信号类型推断；
// 阶段二：报警类型，非空时覆盖 business_type。
func buildRecord(row rowView, m *mapping.FieldMapping) domain.NormalizedRecord {
	rec := domain.NewNormalizedRecord()
	if row.hasDevice {
		rec.Set(domain.FieldDeviceGroup, row.device.String())
	}

	keys := m.Keys()

	// 透传字段先写，data_type / business_type 随后可被信号推断覆盖
	for _, k := range keys {
		if isDerived(k) {
			continue
		}
		col, _ := m.Resolve(k)
		rec.Set(string(k), row.value(k, col))
	}

	for _, k := range keys {
		col, _ := m.Resolve(k)
		switch k {
		case mapping.PointName:
			en, zh := SplitName(row.value(k, col))
			rec.Set(domain.FieldNameEN, en)
			rec.Set(domain.FieldNameZH, zh)
		case mapping.DeviceGroup:
			rec.Set(domain.FieldDeviceGroup, row.value(k, col))
		case mapping.ItemNo:
			rec.Set(domain.FieldProjectNo, row.value(k, col))
		case mapping.SignalType:
			applySignalType(&rec, row.value(k, col))
		}
	}

	if col, ok := m.Resolve(mapping.AlarmType); ok {
		applyAlarmType(&rec, row.value(mapping.AlarmType, col))
	}
	return rec
}

func isDerived(k mapping.FieldKey) bool {
	switch k {
	case mapping.PointName, mapping.DeviceGroup, mapping.ItemNo, mapping.SignalType, mapping.AlarmType:
		return true
	}
	return false
}

// SplitName 按第一个换行拆分中英文名称，两段均去除首尾空白；
// 无换行时两者都取原值（不做 trim）
func SplitName(v string) (en, zh string) {
	i := strings.Index(v, "\n")
	if i < 0 {
		return v, v
	}
	return strings.TrimSpace(v[:i]), strings.TrimSpace(v[i+1:])
}

// applySignalType 保存原始信号类型并推断 data_type / business_type
// 两个判断相互独立，同时命中时后者（STATE）生效
func applySignalType(rec *domain.NormalizedRecord, raw string) {
	rec.Set(domain.FieldSignalType, raw)
	lower := strings.ToLower(raw)

	if containsAny(lower, analogTokens) || strings.Contains(raw, "模拟") {
		rec.Set(domain.FieldDataType, DataTypeDouble)
		rec.Set(domain.FieldBusinessType, BusinessTypeDigital)
	}
	if containsAny(lower, stateTokens) || strings.Contains(raw, "开关") {
		rec.Set(domain.FieldDataType, DataTypeDouble)
		rec.Set(domain.FieldBusinessType, BusinessTypeState)
	}
}

func applyAlarmType(rec *domain.NormalizedRecord, raw string) {
	rec.Set(domain.FieldAlarmType, raw)
	if raw != "" {
		rec.Set(domain.FieldBusinessType, BusinessTypeAlarm)
	}
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
