package records

import (
	"sort"
	"strings"
	"time"
)

// Mandatory column names.
const (
	ColumnSessionID       = "会话ID"
	ColumnCustomerMessage = "客户消息"
	ColumnAIResponse      = "AI回复"
	ColumnTimestamp       = "时间戳"
)

// TimestampLayout is the format of the timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// FieldTypeText is the bitable field type of every catalogue column.
const FieldTypeText = 1

// OptionalField maps a tool argument key to its table column.
type OptionalField struct {
	Key         string
	Column      string
	Description string
}

// OptionalFields is the catalogue of optional intake fields in table order.
var OptionalFields = []OptionalField{
	{Key: "customer_name", Column: "客户姓名", Description: "Customer's name"},
	{Key: "contact_info", Column: "联系方式", Description: "Any contact detail the customer shared"},
	{Key: "email", Column: "邮箱", Description: "Email address"},
	{Key: "phone", Column: "电话", Description: "Phone number"},
	{Key: "whatsapp", Column: "WhatsApp", Description: "WhatsApp number"},
	{Key: "wechat", Column: "微信", Description: "WeChat ID"},
	{Key: "company_name", Column: "公司名称", Description: "Company name"},
	{Key: "company_website", Column: "公司网站", Description: "Company website"},
	{Key: "country", Column: "国家", Description: "Country"},
	{Key: "city", Column: "城市", Description: "City"},
	{Key: "industry", Column: "行业", Description: "Industry"},
	{Key: "job_title", Column: "职位", Description: "Job title"},
	{Key: "product_interest", Column: "产品兴趣", Description: "Products the customer is interested in"},
	{Key: "product_model", Column: "产品型号", Description: "Product model discussed"},
	{Key: "application", Column: "应用场景", Description: "Application, e.g. paper bag side seam"},
	{Key: "paper_type", Column: "纸张类型", Description: "Paper type"},
	{Key: "bag_type", Column: "纸袋类型", Description: "Bag type"},
	{Key: "machine_brand", Column: "机器品牌", Description: "Machine brand"},
	{Key: "machine_model", Column: "机器型号", Description: "Machine model"},
	{Key: "machine_type", Column: "机器类型", Description: "Machine type, e.g. fully automatic"},
	{Key: "machine_speed", Column: "机器速度", Description: "Machine speed"},
	{Key: "coating_method", Column: "上胶方式", Description: "Glue application method"},
	{Key: "climate", Column: "气候湿度", Description: "Local climate and humidity"},
	{Key: "monthly_usage", Column: "月用量", Description: "Monthly adhesive usage"},
	{Key: "order_quantity", Column: "采购数量", Description: "Order quantity"},
	{Key: "target_price", Column: "目标价格", Description: "Target price"},
	{Key: "current_supplier", Column: "现有供应商", Description: "Current supplier"},
	{Key: "sample_request", Column: "样品需求", Description: "Sample request details"},
	{Key: "purchase_timeline", Column: "采购时间", Description: "Expected purchase time"},
	{Key: "special_requirements", Column: "特殊要求", Description: "Special requirements"},
	{Key: "lead_source", Column: "来源渠道", Description: "How the customer found us"},
	{Key: "file_url", Column: "附件链接", Description: "URL of a file the customer uploaded"},
	{Key: "notes", Column: "备注", Description: "Anything else worth noting"},
}

var optionalByKey = func() map[string]OptionalField {
	m := make(map[string]OptionalField, len(OptionalFields))
	for _, f := range OptionalFields {
		m[f.Key] = f
	}
	return m
}()

// OptionalKeys returns the catalogue keys in table order.
func OptionalKeys() []string {
	keys := make([]string, 0, len(OptionalFields))
	for _, f := range OptionalFields {
		keys = append(keys, f.Key)
	}
	return keys
}

// MandatoryColumns returns the four columns written on every record.
func MandatoryColumns() []string {
	return []string{ColumnSessionID, ColumnCustomerMessage, ColumnAIResponse, ColumnTimestamp}
}

// Columns returns every column of the schema in table order.
func Columns() []string {
	cols := MandatoryColumns()
	for _, f := range OptionalFields {
		cols = append(cols, f.Column)
	}
	return cols
}

// ChatRecord is one exchange to persist.
type ChatRecord struct {
	SessionID       string
	CustomerMessage string
	AIResponse      string
	Timestamp       time.Time
	// Optional holds catalogue key -> value.
	Optional map[string]string
}

// BuildFields renders rec as a column -> value map. The four mandatory
// columns are always present; an optional column is present only when its
// key is catalogued and its value is non-empty after trimming.
func BuildFields(rec ChatRecord) map[string]any {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	fields := map[string]any{
		ColumnSessionID:       rec.SessionID,
		ColumnCustomerMessage: rec.CustomerMessage,
		ColumnAIResponse:      rec.AIResponse,
		ColumnTimestamp:       ts.Format(TimestampLayout),
	}
	for key, value := range rec.Optional {
		spec, ok := optionalByKey[key]
		if !ok {
			continue
		}
		if v := strings.TrimSpace(value); v != "" {
			fields[spec.Column] = v
		}
	}
	return fields
}

// UnknownKeys lists optional keys that are not in the catalogue, sorted.
func UnknownKeys(optional map[string]string) []string {
	var out []string
	for key := range optional {
		if _, ok := optionalByKey[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}
