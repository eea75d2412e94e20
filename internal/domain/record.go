package domain

import (
	"encoding/json"
	"sort"
)

// 标准字段（NormalizedRecord 的固定字段集，按输出顺序）
const (
	FieldDeviceGroup  = "device_group"
	FieldProjectNo    = "project_no"
	FieldNameEN       = "name_en"
	FieldNameZH       = "name_zh"
	FieldAlias        = "alias"
	FieldDataType     = "data_type"
	FieldSignalType   = "signal_type"
	FieldBusinessType = "business_type"
	FieldAlarmType    = "alarm_type"
	FieldStatusEnum   = "status_enum"
	FieldCollectType  = "collect_type"
	FieldRelatedPoint = "related_point"
	FieldRange        = "range"
	FieldUnit         = "unit"
	FieldLL           = "ll"
	FieldL            = "l"
	FieldH            = "h"
	FieldHH           = "hh"
)

// 导出阶段读取的扩展字段（由调用方附加在记录上）
const (
	ExtGroupName    = "group_name"
	ExtIPAddress    = "ip_address"
	ExtStandardName = "standard_name"
)

// CanonicalFields 标准字段顺序
var CanonicalFields = []string{
	FieldDeviceGroup,
	FieldProjectNo,
	FieldNameEN,
	FieldNameZH,
	FieldAlias,
	FieldDataType,
	FieldSignalType,
	FieldBusinessType,
	FieldAlarmType,
	FieldStatusEnum,
	FieldCollectType,
	FieldRelatedPoint,
	FieldRange,
	FieldUnit,
	FieldLL,
	FieldL,
	FieldH,
	FieldHH,
}

var canonicalSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(CanonicalFields))
	for _, f := range CanonicalFields {
		m[f] = struct{}{}
	}
	return m
}()

// IsCanonicalField 是否为标准字段
func IsCanonicalField(key string) bool {
	_, ok := canonicalSet[key]
	return ok
}

// NormalizedRecord 标准化后的测点记录
// 标准字段总是存在（默认空串）；Ext 存放调用方附加的扩展字段（group_name / ip_address 等）
type NormalizedRecord struct {
	fields map[string]string
	Ext    map[string]string
}

// NewNormalizedRecord 创建所有标准字段为空串的记录
func NewNormalizedRecord() NormalizedRecord {
	fields := make(map[string]string, len(CanonicalFields))
	for _, f := range CanonicalFields {
		fields[f] = ""
	}
	return NormalizedRecord{fields: fields}
}

// Get 读取字段（标准字段或扩展字段），不存在时返回空串
func (r NormalizedRecord) Get(key string) string {
	if v, ok := r.fields[key]; ok {
		return v
	}
	return r.Ext[key]
}

// Set 写入字段；非标准字段写入 Ext
func (r *NormalizedRecord) Set(key, value string) {
	if r.fields == nil {
		ext := r.Ext
		*r = NewNormalizedRecord()
		r.Ext = ext
	}
	if IsCanonicalField(key) {
		r.fields[key] = value
		return
	}
	if r.Ext == nil {
		r.Ext = make(map[string]string)
	}
	r.Ext[key] = value
}

// MarshalJSON 标准字段按固定顺序输出，扩展字段按 key 排序追加
func (r NormalizedRecord) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	write := func(k, v string) error {
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if len(buf) > 1 {
			buf = append(buf, ',')
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
		return nil
	}
	for _, f := range CanonicalFields {
		if err := write(f, r.fields[f]); err != nil {
			return nil, err
		}
	}
	extKeys := make([]string, 0, len(r.Ext))
	for k := range r.Ext {
		if !IsCanonicalField(k) {
			extKeys = append(extKeys, k)
		}
	}
	sort.Strings(extKeys)
	for _, k := range extKeys {
		if err := write(k, r.Ext[k]); err != nil {
			return nil, err
		}
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON 接受前端回传的任意扁平对象；非字符串值按 JSON 文本保存，null 视为空串
func (r *NormalizedRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = NewNormalizedRecord()
	for k, v := range raw {
		r.Set(k, stringify(v))
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// RawPreviewRecord 原始值预览（dev / pt / sig），仅用于前端对比
type RawPreviewRecord map[string]string

// 原始预览 key
const (
	RawDevice = "dev"
	RawPoint  = "pt"
	RawSignal = "sig"
)
