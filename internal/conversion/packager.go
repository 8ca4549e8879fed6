package conversion

// kintone目标字段代码
const (
	FieldConversionID         = "conversion_id"
	FieldRequestDate          = "request_date"
	FieldRequestType          = "request_type"
	FieldConfirmID            = "confirm_id"
	FieldUserName             = "user_name"
	FieldUserKana             = "user_kana"
	FieldUserZipCode          = "user_zip_code"
	FieldUserAddress          = "user_address"
	FieldUserTel              = "user_tel"
	FieldUserEmail            = "user_email"
	FieldReservedDate01       = "reserved_date_01"
	FieldReservedDate02       = "reserved_date_02"
	FieldCompany              = "company"
	FieldEventAddress         = "event_address"
	FieldEventCompanyName     = "event_company_name"
	FieldEventName            = "event_name"
	FieldQuestionPlan         = "question_plan"
	FieldQuestionPrefForBuild = "question_pref_for_build"
	FieldQuestionSchedule     = "question_schedule"
	FieldQuestionBudget       = "question_budget"
	FieldQuestionStatus       = "question_status"
	FieldQuestionQuestions    = "question_questions"
	FieldQuestionMonitor      = "question_monitor"
)

// Field kintone记录的单个字段值包装，序列化为 {"value": ...}
type Field struct {
	Value any `json:"value"`
}

// CompanyRow company表格行的内层结构
type CompanyRow struct {
	CompanyCode Field `json:"company_code"`
	CompanyName Field `json:"company_name"`
}

// Record kintone记录体：字段代码到包装值的映射，缺省字段整体省略
type Record map[string]Field

// CompanyTable 把企业列表包装为kintone表格字段的行序列
func CompanyTable(companies []Company) []Field {
	rows := make([]Field, 0, len(companies))
	for _, company := range companies {
		rows = append(rows, Field{Value: CompanyRow{
			CompanyCode: Field{Value: deref(company.Code)},
			CompanyName: Field{Value: deref(company.Name)},
		}})
	}
	return rows
}

// fieldMapping 目标字段代码与取值函数的静态绑定，
// 初始化时构表，避免运行期按字段名字符串拼装函数名
type fieldMapping struct {
	code    string
	resolve accessor
}

// kintone字段的固定顺序表
var fieldMappings = []fieldMapping{
	{FieldConversionID, conversionID},
	{FieldRequestDate, requestDate},
	{FieldRequestType, requestType},
	{FieldConfirmID, confirmID},
	{FieldUserName, userName},
	{FieldUserKana, userKana},
	{FieldUserZipCode, userZipCode},
	{FieldUserAddress, userAddress},
	{FieldUserTel, userTel},
	{FieldUserEmail, userEmail},
	{FieldReservedDate01, reservedDate01},
	{FieldReservedDate02, reservedDate02},
	{FieldCompany, company},
	{FieldEventAddress, eventAddress},
	{FieldEventCompanyName, eventCompanyName},
	{FieldEventName, eventName},
	{FieldQuestionPlan, questionPlan},
	{FieldQuestionPrefForBuild, questionPrefForBuild},
	{FieldQuestionSchedule, questionSchedule},
	{FieldQuestionBudget, questionBudget},
	{FieldQuestionStatus, questionStatus},
	{FieldQuestionQuestions, questionQuestions},
	{FieldQuestionMonitor, questionMonitor},
}

// Pack 把转换文档重新打包为kintone记录体。
// 可选字段缺省时跳过对应字段；文档缺少tag/contents返回ErrMalformedDocument。
// 同一输入的输出是确定的。
func Pack(doc *Document) (Record, error) {
	if doc == nil || doc.Tag == nil || doc.Contents == nil {
		return nil, ErrMalformedDocument
	}

	record := make(Record, len(fieldMappings))
	for _, mapping := range fieldMappings {
		value, ok := mapping.resolve(doc)
		if !ok {
			continue
		}
		record[mapping.code] = Field{Value: value}
	}
	return record, nil
}
