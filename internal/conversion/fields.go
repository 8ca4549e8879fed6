package conversion

import (
	"strings"
)

// tag.category 到 kintone request_type 字面值的固定映射表
var categoryNames = map[string]string{
	CategoryRequestsOfCatalog: "資料請求メール",
	CategoryEventReserve:      "イベント予約",
	CategoryModelHouseReserve: "モデルハウス予約",
}

// 都道府県名，按地理顺序排列，下标0对应代码"01"
var prefNames = [...]string{
	"北海道",
	"青森県",
	"岩手県",
	"宮城県",
	"秋田県",
	"山形県",
	"福島県",
	"茨城県",
	"栃木県",
	"群馬県",
	"埼玉県",
	"千葉県",
	"東京都",
	"神奈川県",
	"新潟県",
	"富山県",
	"石川県",
	"福井県",
	"山梨県",
	"長野県",
	"岐阜県",
	"静岡県",
	"愛知県",
	"三重県",
	"滋賀県",
	"京都府",
	"大阪府",
	"兵庫県",
	"奈良県",
	"和歌山県",
	"鳥取県",
	"島根県",
	"岡山県",
	"広島県",
	"山口県",
	"徳島県",
	"香川県",
	"愛媛県",
	"高知県",
	"福岡県",
	"佐賀県",
	"長崎県",
	"熊本県",
	"大分県",
	"宮崎県",
	"鹿児島県",
	"沖縄県",
}

// prefCodes 2位零填充代码 "01".."47"
var prefByCode = func() map[string]string {
	m := make(map[string]string, len(prefNames))
	for i, name := range prefNames {
		code := []byte{'0' + byte((i+1)/10), '0' + byte((i+1)%10)}
		m[string(code)] = name
	}
	return m
}()

// CategoryName 查询分类枚举对应的日文名称，未知分类返回false
func CategoryName(category string) (string, bool) {
	name, ok := categoryNames[category]
	return name, ok
}

// PrefectureName 按2位代码查询都道府県名，"00"、"48"或非数字输入返回false
func PrefectureName(code string) (string, bool) {
	name, ok := prefByCode[code]
	return name, ok
}

// MonitorChoice 把读者モニター意向的两个已知字面值映射到"可"/"不可"，
// 其余任何值（含空串）映射到"無回答"
func MonitorChoice(monitor string) string {
	switch monitor {
	case "読者モニターになる":
		return "可"
	case "読者モニターにならない":
		return "不可"
	default:
		return "無回答"
	}
}

// FormatDateTime 用"T"连接日期和时间，任一侧为空则不加分隔符
func FormatDateTime(date, time string) string {
	parts := make([]string, 0, 2)
	if date != "" {
		parts = append(parts, date)
	}
	if time != "" {
		parts = append(parts, time)
	}
	return strings.Join(parts, "T")
}

// deref 指针为nil时返回空串
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// firstNonEmpty 返回第一个非nil且非空的值
func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

// accessor 从完整文档中取出一个目标字段的派生值；第二个返回值为false表示该字段缺省
type accessor func(doc *Document) (any, bool)

func conversionID(doc *Document) (any, bool) {
	if doc.Tag.ConversionID == nil {
		return nil, false
	}
	return *doc.Tag.ConversionID, true
}

// requestDate 只保留日期部分（按"T"切分取第一段）
func requestDate(doc *Document) (any, bool) {
	if doc.Tag.RequestDate == nil {
		return nil, false
	}
	return strings.SplitN(*doc.Tag.RequestDate, "T", 2)[0], true
}

// requestType 未知分类按缺省处理，不报错
func requestType(doc *Document) (any, bool) {
	if doc.Tag.Category == nil {
		return nil, false
	}
	name, ok := CategoryName(*doc.Tag.Category)
	if !ok {
		return nil, false
	}
	return name, true
}

func confirmID(doc *Document) (any, bool) {
	if doc.Tag.ConfirmID == nil {
		return nil, false
	}
	return *doc.Tag.ConfirmID, true
}

func userName(doc *Document) (any, bool) {
	if doc.Contents.Name == nil {
		return nil, false
	}
	return *doc.Contents.Name, true
}

// userKana 优先kana，空或缺省时回退旧字段yomigana
func userKana(doc *Document) (any, bool) {
	c := doc.Contents
	if c.Kana != nil && *c.Kana != "" {
		return *c.Kana, true
	}
	if c.Yomigana != nil {
		return *c.Yomigana, true
	}
	return nil, false
}

func userZipCode(doc *Document) (any, bool) {
	if doc.Contents.Zip == nil {
		return nil, false
	}
	return *doc.Contents.Zip, true
}

// userAddress 都道府県名与自由地址直接拼接。
// 代码缺省或未知时拼入字面值"undefined"（沿用既有行为），两者都缺省才算缺省。
func userAddress(doc *Document) (any, bool) {
	c := doc.Contents
	if c.Pref == nil && c.Addr == nil {
		return nil, false
	}
	prefName := "undefined"
	if c.Pref != nil {
		if name, ok := PrefectureName(*c.Pref); ok {
			prefName = name
		}
	}
	addr := "undefined"
	if c.Addr != nil {
		addr = *c.Addr
	}
	return prefName + addr, true
}

func userTel(doc *Document) (any, bool) {
	if doc.Contents.Tel == nil {
		return nil, false
	}
	return *doc.Contents.Tel, true
}

func userEmail(doc *Document) (any, bool) {
	if doc.Contents.Email == nil {
		return nil, false
	}
	return *doc.Contents.Email, true
}

// reservedDate01 优先prefered_date/prefered_time，回退prefered_date1/prefered_time1；
// 两个日期键都不存在才算缺省
func reservedDate01(doc *Document) (any, bool) {
	c := doc.Contents
	if c.PreferedDate == nil && c.PreferedDate1 == nil {
		return nil, false
	}
	date := firstNonEmpty(c.PreferedDate, c.PreferedDate1)
	time := firstNonEmpty(c.PreferedTime, c.PreferedTime1)
	return FormatDateTime(date, time), true
}

// reservedDate02 仅取prefered_date2/prefered_time2，无回退键
func reservedDate02(doc *Document) (any, bool) {
	c := doc.Contents
	if c.PreferedDate2 == nil {
		return nil, false
	}
	return FormatDateTime(*c.PreferedDate2, deref(c.PreferedTime2)), true
}

// company 把单个company或companies数组归一化为统一的表格行；
// 两者同时出现时companies优先
func company(doc *Document) (any, bool) {
	c := doc.Contents
	if c.Company == nil && c.Companies == nil {
		return nil, false
	}
	if c.Companies != nil {
		return CompanyTable(c.Companies), true
	}
	return CompanyTable([]Company{*c.Company}), true
}

// eventAddress event优先，回退model_house；addr在两种变体上同名
func eventAddress(doc *Document) (any, bool) {
	c := doc.Contents
	if c.Event == nil && c.ModelHouse == nil {
		return nil, false
	}
	venue := c.Event
	if venue == nil {
		venue = c.ModelHouse
	}
	if venue.Addr == nil {
		return nil, false
	}
	return *venue.Addr, true
}

// eventCompanyName 始终取顶层单数company的name，
// 只提供companies时该字段缺省（沿用既有行为）
func eventCompanyName(doc *Document) (any, bool) {
	c := doc.Contents
	if c.Company == nil || c.Company.Name == nil {
		return nil, false
	}
	return *c.Company.Name, true
}

// eventName model_house用name字段，event用prmword字段
func eventName(doc *Document) (any, bool) {
	c := doc.Contents
	if c.Event == nil && c.ModelHouse == nil {
		return nil, false
	}
	if c.ModelHouse != nil {
		if c.ModelHouse.Name == nil {
			return nil, false
		}
		return *c.ModelHouse.Name, true
	}
	if c.Event.Prmword == nil {
		return nil, false
	}
	return *c.Event.Prmword, true
}

func questionPlan(doc *Document) (any, bool) {
	if doc.Contents.Plan == nil {
		return nil, false
	}
	return *doc.Contents.Plan, true
}

func questionPrefForBuild(doc *Document) (any, bool) {
	if doc.Contents.PrefForBuild == nil {
		return nil, false
	}
	return *doc.Contents.PrefForBuild, true
}

func questionSchedule(doc *Document) (any, bool) {
	if doc.Contents.Schedule == nil {
		return nil, false
	}
	return *doc.Contents.Schedule, true
}

func questionBudget(doc *Document) (any, bool) {
	if doc.Contents.Budget == nil {
		return nil, false
	}
	return *doc.Contents.Budget, true
}

// questionStatus 包装为单元素数组；缺省或空串都算缺省
func questionStatus(doc *Document) (any, bool) {
	c := doc.Contents
	if c.Status == nil || *c.Status == "" {
		return nil, false
	}
	return []string{*c.Status}, true
}

// questionQuestions 逗号分隔的自由文本切分为数组。
// 空串会得到单元素[""]，保持既有边界行为
func questionQuestions(doc *Document) (any, bool) {
	if doc.Contents.Questions == nil {
		return nil, false
	}
	return strings.Split(*doc.Contents.Questions, ","), true
}

// questionMonitor 键存在时必有值（未知输入映射到"無回答"），键不存在才缺省
func questionMonitor(doc *Document) (any, bool) {
	if doc.Contents.EnqCoop == nil {
		return nil, false
	}
	return MonitorChoice(*doc.Contents.EnqCoop), true
}
