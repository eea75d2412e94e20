package domain

// ShipMetadata 船舶信息（导出说明页第一块）
type ShipMetadata struct {
	Name    string `json:"name" yaml:"name"`
	Hull    string `json:"hull" yaml:"hull"`
	Owner   string `json:"owner" yaml:"owner"`
	Project string `json:"project" yaml:"project"`
	Class   string `json:"class" yaml:"class"`
	IMO     string `json:"imo" yaml:"imo"`
	MMSI    string `json:"mmsi" yaml:"mmsi"`
}

// ShipMetadataFromMap 从前端 ship_info 对象构造，缺失字段为空串
func ShipMetadataFromMap(m map[string]any) ShipMetadata {
	get := func(k string) string {
		if v, ok := m[k].(string); ok {
			return v
		}
		if v, ok := m[k]; ok && v != nil {
			return stringify(v)
		}
		return ""
	}
	return ShipMetadata{
		Name:    get("name"),
		Hull:    get("hull"),
		Owner:   get("owner"),
		Project: get("project"),
		Class:   get("class"),
		IMO:     get("imo"),
		MMSI:    get("mmsi"),
	}
}
