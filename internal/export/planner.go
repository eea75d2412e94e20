// Package export 按分组 / 设备重组标准测点记录并输出多工作表工作簿
package export

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"pointlist/internal/domain"
)

// 默认名称
const (
	DefaultGroupName  = "默认分组"
	DefaultDeviceName = "未命名设备"
	FallbackSheetName = "分组"
	DescriptionSheet  = "说明"
)

// 说明页各区块起始行（0 起始）
const (
	ShipBlockRow   = 0
	GroupBlockRow  = 3
	DeviceBlockRow = 8
)

// ShipHeader 船舶信息表头
var ShipHeader = []string{
	"船只名称(Name)",
	"船只编号(HULL No.)",
	"船东(Owner)",
	"项目编号(Project No.)",
	"船级(Class)",
	"IMO编号",
	"MMSI编号",
}

// GroupHeader 分组表表头
var GroupHeader = []string{"ID", "name_en", "name_zh", "alias"}

// DeviceHeader 设备表表头
var DeviceHeader = []string{"id", "name_en", "name_zh", "alias", "类别", "group_id", "product_name", "IP地址"}

// PointColumn 分组工作表的一列：表头 + 取值字段
type PointColumn struct {
	Header string
	Field  string
}

// deviceNameField 设备名列取派生后的设备名，而不是原始 device_group
const deviceNameField = "__device_name"

// PointColumns 分组工作表固定 19 列
var PointColumns = []PointColumn{
	{"设备名", deviceNameField},
	{"项目编号", domain.FieldProjectNo},
	{"标准名称", domain.ExtStandardName},
	{"检测点名称(EN)", domain.FieldNameEN},
	{"检测点名称(ZH/ITEM NAME)", domain.FieldNameZH},
	{"别名", domain.FieldAlias},
	{"数据类型", domain.FieldDataType},
	{"信号类型", domain.FieldSignalType},
	{"业务类型", domain.FieldBusinessType},
	{"报警类型", domain.FieldAlarmType},
	{"状态枚举", domain.FieldStatusEnum},
	{"采集类型", domain.FieldCollectType},
	{"关联测点", domain.FieldRelatedPoint},
	{"范围", domain.FieldRange},
	{"单位", domain.FieldUnit},
	{"低低限", domain.FieldLL},
	{"低限", domain.FieldL},
	{"高限", domain.FieldH},
	{"高高限", domain.FieldHH},
}

// PointHeaders 分组工作表表头
func PointHeaders() []string {
	out := make([]string, len(PointColumns))
	for i, c := range PointColumns {
		out[i] = c.Header
	}
	return out
}

// Group 导出分组
type Group struct {
	ID   int
	Name string
}

// Device 导出设备；GroupID 取该设备首条记录所在分组
//
// IPAddress 取该设备首个非空的 ip_address：显式的 "" 与缺失同样跳过，
// 由后续记录的非空值补上（不是"首个非 null"）。HasIP 为 false 时该列留空。
type Device struct {
	ID        int
	Name      string
	GroupID   int
	IPAddress string
	HasIP     bool
}

// Block 工作表中从 Row 行开始的一块表格（首行为表头）
// 单元格为 string 或 int；nil 行表示空白分隔行
type Block struct {
	Row  int
	Rows [][]any
}

// Sheet 输出工作表；Name 为实际工作表名（已按 Excel 规则清洗去重），Group 为原分组名
type Sheet struct {
	Name   string
	Group  string
	Blocks []Block
}

// ExportPlan 导出计划：说明页 + 每个分组一页
type ExportPlan struct {
	Groups  []Group
	Devices []Device
	// RecordGroupIDs / RecordDeviceIDs 与输入记录逐条对应
	RecordGroupIDs  []int
	RecordDeviceIDs []int
	Sheets          []Sheet
}

// GroupName 记录的分组名（空则为默认分组）
func GroupName(r domain.NormalizedRecord) string {
	if v := r.Get(domain.ExtGroupName); v != "" {
		return v
	}
	return DefaultGroupName
}

// DeviceName 记录的设备名（空则为未命名设备）
func DeviceName(r domain.NormalizedRecord) string {
	if v := r.Get(domain.FieldDeviceGroup); v != "" {
		return v
	}
	return DefaultDeviceName
}

// idSet 按首次出现顺序分配从 1 开始的连续编号
type idSet struct {
	ids   map[string]int
	names []string
}

func newIDSet() *idSet { return &idSet{ids: make(map[string]int)} }

func (s *idSet) id(name string) int {
	if id, ok := s.ids[name]; ok {
		return id
	}
	s.names = append(s.names, name)
	id := len(s.names)
	s.ids[name] = id
	return id
}

// Plan 计算分组 / 设备编号并生成各工作表内容
// 纯函数：编号只由输入记录顺序决定
func Plan(records []domain.NormalizedRecord, ship domain.ShipMetadata) (*ExportPlan, error) {
	if len(records) == 0 {
		return nil, domain.ErrEmptyExport
	}

	groups, devices := newIDSet(), newIDSet()
	plan := &ExportPlan{
		RecordGroupIDs:  make([]int, len(records)),
		RecordDeviceIDs: make([]int, len(records)),
	}

	// 分组 -> 设备 -> 记录下标，均保持首次出现顺序
	type deviceBucket struct {
		name    string
		records []int
	}
	type groupBucket struct {
		name    string
		devices []*deviceBucket
		byName  map[string]*deviceBucket
	}
	var buckets []*groupBucket
	deviceInfo := map[int]*Device{}

	for i, r := range records {
		gname, dname := GroupName(r), DeviceName(r)
		gid := groups.id(gname)
		did := devices.id(dname)
		plan.RecordGroupIDs[i] = gid
		plan.RecordDeviceIDs[i] = did

		if gid > len(buckets) {
			buckets = append(buckets, &groupBucket{name: gname, byName: map[string]*deviceBucket{}})
		}
		gb := buckets[gid-1]
		db, ok := gb.byName[dname]
		if !ok {
			db = &deviceBucket{name: dname}
			gb.byName[dname] = db
			gb.devices = append(gb.devices, db)
		}
		db.records = append(db.records, i)

		d, ok := deviceInfo[did]
		if !ok {
			d = &Device{ID: did, Name: dname, GroupID: gid}
			deviceInfo[did] = d
		}
		if !d.HasIP {
			if ip := r.Get(domain.ExtIPAddress); ip != "" {
				d.IPAddress, d.HasIP = ip, true
			}
		}
	}

	for i, name := range groups.names {
		plan.Groups = append(plan.Groups, Group{ID: i + 1, Name: name})
	}
	for i := range devices.names {
		plan.Devices = append(plan.Devices, *deviceInfo[i+1])
	}

	used := map[string]bool{strings.ToLower(DescriptionSheet): true}
	plan.Sheets = append(plan.Sheets, descriptionSheet(ship, plan.Groups, plan.Devices))

	for _, gb := range buckets {
		rows := [][]any{strRow(PointHeaders())}
		for _, db := range gb.devices {
			for _, idx := range db.records {
				rows = append(rows, pointRow(records[idx], db.name))
			}
			rows = append(rows, nil)
		}
		name := gb.name
		if name == "" {
			name = FallbackSheetName
		}
		plan.Sheets = append(plan.Sheets, Sheet{
			Name:   uniqueSheetName(name, used),
			Group:  gb.name,
			Blocks: []Block{{Row: 0, Rows: rows}},
		})
	}
	return plan, nil
}

func pointRow(r domain.NormalizedRecord, deviceName string) []any {
	row := make([]any, len(PointColumns))
	for i, c := range PointColumns {
		if c.Field == deviceNameField {
			row[i] = deviceName
			continue
		}
		row[i] = r.Get(c.Field)
	}
	return row
}

func descriptionSheet(ship domain.ShipMetadata, groups []Group, devices []Device) Sheet {
	shipRows := [][]any{
		strRow(ShipHeader),
		{ship.Name, ship.Hull, ship.Owner, ship.Project, ship.Class, ship.IMO, ship.MMSI},
	}

	groupRows := [][]any{strRow(GroupHeader)}
	for _, g := range groups {
		groupRows = append(groupRows, []any{g.ID, g.Name, g.Name, ""})
	}

	deviceRows := [][]any{strRow(DeviceHeader)}
	for _, d := range devices {
		deviceRows = append(deviceRows, []any{d.ID, d.Name, d.Name, "", "", d.GroupID, "", d.IPAddress})
	}

	return Sheet{
		Name: DescriptionSheet,
		Blocks: []Block{
			{Row: ShipBlockRow, Rows: shipRows},
			{Row: GroupBlockRow, Rows: groupRows},
			{Row: DeviceBlockRow, Rows: deviceRows},
		},
	}
}

func strRow(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// Excel 工作表名：最长 31 个字符，不能包含 : \ / ? * [ ]，不能以 ' 开头或结尾，不区分大小写唯一
const maxSheetNameLen = 31

var sheetNameReplacer = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")",
)

func sanitizeSheetName(name string) string {
	name = sheetNameReplacer.Replace(name)
	name = strings.Trim(name, "'")
	name = truncateRunes(name, maxSheetNameLen)
	if strings.TrimSpace(name) == "" {
		return FallbackSheetName
	}
	return name
}

func uniqueSheetName(name string, used map[string]bool) string {
	name = sanitizeSheetName(name)
	base := name
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("(%d)", n)
		name = truncateRunes(base, maxSheetNameLen-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
