package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset 映射预设文件（YAML），供命令行工具复用同一格式点表的映射
//
//	sheet: IO List
//	header_row: 2
//	strict: false
//	mapping:
//	  device_group: 0
//	  point_name: 3
//	  signal_type: 5
type Preset struct {
	Sheet     string         `yaml:"sheet"`
	HeaderRow int            `yaml:"header_row"`
	Strict    bool           `yaml:"strict"`
	Mapping   map[string]any `yaml:"mapping"`
}

// LoadPreset 读取并解析预设文件
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset: %w", err)
	}
	return ParsePreset(data)
}

// ParsePreset 解析预设内容
func ParsePreset(data []byte) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse preset: %w", err)
	}
	if p.HeaderRow < 0 {
		return nil, fmt.Errorf("header_row must be non-negative, got %d", p.HeaderRow)
	}
	return &p, nil
}

// FieldMapping 构造预设对应的映射
func (p *Preset) FieldMapping() (*FieldMapping, error) {
	return New(p.Mapping, Options{Strict: p.Strict})
}
