// Package mapping 用户声明的「语义字段 -> 列索引」映射
package mapping

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"pointlist/internal/domain"

	"github.com/spf13/cast"
)

// FieldKey 映射字段 key
type FieldKey string

// 需要派生规则的字段
const (
	DeviceGroup FieldKey = "device_group"
	PointName   FieldKey = "point_name"
	ItemNo      FieldKey = "item_no"
	SignalType  FieldKey = "signal_type"
	AlarmType   FieldKey = "alarm_type"
)

// KnownKeys 封闭的已知字段集合（派生字段 + 直接透传的标准字段），按处理顺序
var KnownKeys = []FieldKey{
	DeviceGroup,
	PointName,
	ItemNo,
	SignalType,
	AlarmType,
	"status_enum",
	"collect_type",
	"related_point",
	"range",
	"unit",
	"ll",
	"l",
	"h",
	"hh",
	"alias",
	"data_type",
	"business_type",
}

var knownSet = func() map[FieldKey]struct{} {
	m := make(map[FieldKey]struct{}, len(KnownKeys))
	for _, k := range KnownKeys {
		m[k] = struct{}{}
	}
	return m
}()

// IsKnown 是否为已知字段
func IsKnown(k FieldKey) bool {
	_, ok := knownSet[k]
	return ok
}

// Options 构造选项
type Options struct {
	// Strict 为 true 时未知字段返回 InvalidMapping，否则按透传字段处理
	Strict bool
}

// FieldMapping 已校验的映射（不可变）
type FieldMapping struct {
	index map[FieldKey]int
	keys  []FieldKey
}

// New 从前端提交的 mapping 对象构造
// 值可以是整数、整数值的浮点数或数字字符串；null / "" 视为未映射
func New(raw map[string]any, opts Options) (*FieldMapping, error) {
	m := &FieldMapping{index: make(map[FieldKey]int, len(raw))}
	for k, v := range raw {
		key := FieldKey(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		if opts.Strict && !IsKnown(key) {
			return nil, domain.NewInvalidMapping(string(key), "unknown field")
		}
		idx, ok, err := ParseIndex(string(key), v)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		m.index[key] = idx
	}
	m.keys = orderKeys(m.index)
	return m, nil
}

// ParseIndex 解析单个列 / 行索引
// 字符串按十进制解析（前导零不视为八进制）；null / "" 返回 ok=false
func ParseIndex(key string, v any) (int, bool, error) {
	i, ok, err := coerceIndex(v)
	if err != nil {
		return 0, false, domain.NewInvalidMapping(key, err.Error())
	}
	return i, ok, nil
}

func coerceIndex(v any) (int, bool, error) {
	var (
		i   int
		err error
	)
	switch t := v.(type) {
	case nil:
		return 0, false, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false, nil
		}
		i, err = strconv.Atoi(s)
		if err != nil {
			return 0, false, fmt.Errorf("index must be a base-10 integer, got %q", t)
		}
	case bool:
		return 0, false, fmt.Errorf("index must be an integer, got %v", t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t != math.Trunc(t) {
			return 0, false, fmt.Errorf("index must be an integer, got %v", t)
		}
		i = int(t)
	case float32:
		f := float64(t)
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, false, fmt.Errorf("index must be an integer, got %v", t)
		}
		i = int(f)
	default:
		i, err = cast.ToIntE(v)
		if err != nil {
			return 0, false, fmt.Errorf("index must be an integer, got %v", v)
		}
	}
	if i < 0 {
		return 0, false, fmt.Errorf("index must be non-negative, got %d", i)
	}
	return i, true, nil
}

// 已知字段按 KnownKeys 顺序，其余透传字段按字典序
func orderKeys(index map[FieldKey]int) []FieldKey {
	keys := make([]FieldKey, 0, len(index))
	for _, k := range KnownKeys {
		if _, ok := index[k]; ok {
			keys = append(keys, k)
		}
	}
	var extra []FieldKey
	for k := range index {
		if !IsKnown(k) {
			extra = append(extra, k)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(keys, extra...)
}

// Resolve 返回字段映射的列索引
func (m *FieldMapping) Resolve(key FieldKey) (int, bool) {
	if m == nil {
		return 0, false
	}
	i, ok := m.index[key]
	return i, ok
}

// IsMapped 字段是否已映射
func (m *FieldMapping) IsMapped(key FieldKey) bool {
	_, ok := m.Resolve(key)
	return ok
}

// Keys 已映射字段（确定性顺序）
func (m *FieldMapping) Keys() []FieldKey {
	if m == nil {
		return nil
	}
	out := make([]FieldKey, len(m.keys))
	copy(out, m.keys)
	return out
}

// Validate 检查所有索引在 [0, columnCount) 内
func (m *FieldMapping) Validate(columnCount int) error {
	for _, k := range m.Keys() {
		idx := m.index[k]
		if idx >= columnCount {
			return domain.NewColumnOutOfRange(string(k), idx, columnCount)
		}
	}
	return nil
}
