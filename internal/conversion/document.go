package conversion

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedDocument 表示转换文档缺少必需的结构（tag或contents），属于该条目的致命错误
var ErrMalformedDocument = errors.New("转换文档结构不完整")

// tag.category 的枚举值
const (
	CategoryRequestsOfCatalog = "RequestsOfCatalog"
	CategoryEventReserve      = "EventReserve"
	CategoryModelHouseReserve = "ModelHouseReserve"
)

// tag.status 的处理状态枚举值
const (
	StatusCreate   = "create"
	StatusComplete = "complete"
)

// Document 上游投递到源桶的转换文档。
// contents 是三种转换类型（资料请求/活动预约/样板房预约）字段的超集，
// 大部分字段可缺省，用指针区分"键不存在"和"空字符串"。
type Document struct {
	Tag      *Tag      `json:"tag" validate:"required"`
	Contents *Contents `json:"contents" validate:"required"`
}

// Tag 转换文档的元数据区
type Tag struct {
	ConversionID *string `json:"conversion_id,omitempty"` // 全局唯一，重复由kintone侧检测
	Category     *string `json:"category,omitempty"`
	RequestDate  *string `json:"request_date,omitempty"` // "2018-07-01T10:00:00" 形式
	ConfirmID    *string `json:"confirm_id,omitempty"`
	Status       *string `json:"status,omitempty"` // create | complete
}

// Contents 转换文档的提交内容区
type Contents struct {
	// 个人信息
	Name     *string `json:"name,omitempty"`
	Kana     *string `json:"kana,omitempty"`
	Yomigana *string `json:"yomigana,omitempty"` // kana 的旧字段名
	Zip      *string `json:"zip,omitempty"`
	Pref     *string `json:"pref,omitempty"` // 2位都道府県コード "01".."47"
	Addr     *string `json:"addr,omitempty"`
	Tel      *string `json:"tel,omitempty"`
	Email    *string `json:"email,omitempty"`

	// 预约时段（最多两个，date+time成对）
	PreferedDate  *string `json:"prefered_date,omitempty"`
	PreferedTime  *string `json:"prefered_time,omitempty"`
	PreferedDate1 *string `json:"prefered_date1,omitempty"`
	PreferedTime1 *string `json:"prefered_time1,omitempty"`
	PreferedDate2 *string `json:"prefered_date2,omitempty"`
	PreferedTime2 *string `json:"prefered_time2,omitempty"`

	// 关联企业。company 与 companies 互斥，同时出现时 companies 优先
	Company   *Company  `json:"company,omitempty"`
	Companies []Company `json:"companies,omitempty"`

	// 活动/样板房。event 与 model_house 互斥
	Event      *Venue `json:"event,omitempty"`
	ModelHouse *Venue `json:"model_house,omitempty"`

	// 资料请求问卷
	Plan         *string `json:"plan,omitempty"`
	PrefForBuild *string `json:"pref_for_build,omitempty"`
	Schedule     *string `json:"schedule,omitempty"`
	Budget       *string `json:"budget,omitempty"`
	Status       *string `json:"status,omitempty"`
	Questions    *string `json:"questions,omitempty"` // 逗号分隔的自由文本
	EnqCoop      *string `json:"enq_coop,omitempty"`  // 读者モニター意向
}

// Company 企业的代码+名称对
type Company struct {
	Code *string `json:"code,omitempty"`
	Name *string `json:"name,omitempty"`
}

// Venue 活动或样板房的场所信息。
// addr 两种变体同名；名称字段在 event 上是 prmword，在 model_house 上是 name。
type Venue struct {
	Addr    *string `json:"addr,omitempty"`
	Name    *string `json:"name,omitempty"`
	Prmword *string `json:"prmword,omitempty"`
}

var validate = validator.New()

// ParseDocument 把源桶对象的原始字节解析为转换文档并做结构校验。
// JSON不可解析或缺少tag/contents都视为文档畸形。
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return &doc, nil
}
