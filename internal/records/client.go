package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkbitable "github.com/larksuite/oapi-sdk-go/v3/service/bitable/v1"

	"github.com/memohai/supportdesk/internal/config"
	"github.com/memohai/supportdesk/internal/httpkit"
)

const (
	fieldPageSize   = 100
	searchPageSize  = 500
	defaultViewName = "全部记录"
)

// Record is a row read back from a table.
type Record struct {
	ID     string
	Fields map[string]any
}

// Field is a column of a table.
type Field struct {
	ID   string
	Name string
	Type int
}

// Base is a newly created bitable app.
type Base struct {
	AppToken       string
	DefaultTableID string
	URL            string
}

// Backend is the bitable surface the sink and the provisioning commands use.
type Backend interface {
	AppendRecords(ctx context.Context, loc config.FeishuLocation, rows []map[string]any) ([]string, error)
	SearchRecords(ctx context.Context, loc config.FeishuLocation, column, value string) ([]Record, int, error)
	CreateBase(ctx context.Context, name, folderToken string) (Base, error)
	CreateTable(ctx context.Context, appToken, name string, columns []string) (string, error)
	ListFields(ctx context.Context, loc config.FeishuLocation) ([]Field, error)
	AddField(ctx context.Context, loc config.FeishuLocation, name string, fieldType int) (Field, error)
}

type recordAPI interface {
	BatchCreate(ctx context.Context, req *larkbitable.BatchCreateAppTableRecordReq, options ...larkcore.RequestOptionFunc) (*larkbitable.BatchCreateAppTableRecordResp, error)
	Search(ctx context.Context, req *larkbitable.SearchAppTableRecordReq, options ...larkcore.RequestOptionFunc) (*larkbitable.SearchAppTableRecordResp, error)
}

type appAPI interface {
	Create(ctx context.Context, req *larkbitable.CreateAppReq, options ...larkcore.RequestOptionFunc) (*larkbitable.CreateAppResp, error)
}

type tableAPI interface {
	Create(ctx context.Context, req *larkbitable.CreateAppTableReq, options ...larkcore.RequestOptionFunc) (*larkbitable.CreateAppTableResp, error)
}

type fieldAPI interface {
	List(ctx context.Context, req *larkbitable.ListAppTableFieldReq, options ...larkcore.RequestOptionFunc) (*larkbitable.ListAppTableFieldResp, error)
	Create(ctx context.Context, req *larkbitable.CreateAppTableFieldReq, options ...larkcore.RequestOptionFunc) (*larkbitable.CreateAppTableFieldResp, error)
}

// Options configures NewClient.
type Options struct {
	Feishu     config.FeishuConfig
	BaseURL    string
	Credential CredentialProvider
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the bitable open API. The credential is resolved once, when
// the client is built.
type Client struct {
	records recordAPI
	apps    appAPI
	tables  tableAPI
	fields  fieldAPI
	cred    Credential
	logger  *slog.Logger
}

var _ Backend = (*Client)(nil)

// NewClient builds a Lark client for opts and resolves its credential.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "bitable"))

	timeout := time.Duration(opts.Feishu.TimeoutSeconds) * time.Second
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = httpkit.NewClient(timeout,
			httpkit.UserAgent(httpkit.DefaultUserAgent),
			httpkit.Logging(log, "feishu"),
		)
	}

	provider := opts.Credential
	if provider == nil {
		var err error
		provider, err = CredentialFromConfig(opts.Feishu, httpClient)
		if err != nil {
			return nil, err
		}
	}
	cred, err := provider.Credential(ctx)
	if err != nil {
		return nil, err
	}

	appMode := strings.EqualFold(strings.TrimSpace(opts.Feishu.AuthMode), AuthModeApp)
	larkOpts := []lark.ClientOptionFunc{
		lark.WithOpenBaseUrl(OpenBaseURL(opts.BaseURL, opts.Feishu.Region)),
		lark.WithHttpClient(httpClient),
		lark.WithLogger(newSlogAdapter(log)),
		lark.WithLogLevel(larkcore.LogLevelWarn),
		lark.WithEnableTokenCache(appMode),
	}
	if timeout > 0 {
		larkOpts = append(larkOpts, lark.WithReqTimeout(timeout))
	}
	appID, appSecret := "", ""
	if appMode {
		appID, appSecret = opts.Feishu.AppID, opts.Feishu.AppSecret
	}
	client := lark.NewClient(appID, appSecret, larkOpts...)

	return &Client{
		records: client.Bitable.V1.AppTableRecord,
		apps:    client.Bitable.V1.App,
		tables:  client.Bitable.V1.AppTable,
		fields:  client.Bitable.V1.AppTableField,
		cred:    cred,
		logger:  log,
	}, nil
}

// OpenBaseURL normalizes a configured endpoint to the host form the SDK
// expects. A trailing /open-apis segment is removed; an empty value falls back
// to the region default.
func OpenBaseURL(raw, region string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	u = strings.TrimSuffix(u, "/open-apis")
	if u != "" {
		return u
	}
	if strings.EqualFold(strings.TrimSpace(region), "lark") {
		return lark.LarkBaseUrl
	}
	return lark.FeishuBaseUrl
}

func (c *Client) AppendRecords(ctx context.Context, loc config.FeishuLocation, rows []map[string]any) ([]string, error) {
	if !loc.Complete() {
		return nil, ErrNotConfigured
	}
	if len(rows) == 0 {
		return nil, nil
	}
	items := make([]*larkbitable.AppTableRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, larkbitable.NewAppTableRecordBuilder().Fields(row).Build())
	}
	req := larkbitable.NewBatchCreateAppTableRecordReqBuilder().
		AppToken(loc.AppToken).
		TableId(loc.TableID).
		Body(larkbitable.NewBatchCreateAppTableRecordReqBodyBuilder().
			Records(items).
			Build()).
		Build()
	resp, err := c.records.BatchCreate(ctx, req, c.cred.RequestOptions()...)
	if err != nil {
		return nil, fmt.Errorf("batch create records: %w", err)
	}
	if err := checkCode("batch create records", resp.CodeError); err != nil {
		return nil, err
	}
	var ids []string
	if resp.Data != nil {
		for _, rec := range resp.Data.Records {
			if rec != nil {
				ids = append(ids, deref(rec.RecordId))
			}
		}
	}
	return ids, nil
}

// SearchRecords returns records whose column equals value, plus the total
// reported by the API.
func (c *Client) SearchRecords(ctx context.Context, loc config.FeishuLocation, column, value string) ([]Record, int, error) {
	if !loc.Complete() {
		return nil, 0, ErrNotConfigured
	}
	filter := larkbitable.NewFilterInfoBuilder().
		Conjunction("and").
		Conditions([]*larkbitable.Condition{
			larkbitable.NewConditionBuilder().
				FieldName(column).
				Operator("is").
				Value([]string{value}).
				Build(),
		}).
		Build()
	req := larkbitable.NewSearchAppTableRecordReqBuilder().
		AppToken(loc.AppToken).
		TableId(loc.TableID).
		PageSize(searchPageSize).
		Body(larkbitable.NewSearchAppTableRecordReqBodyBuilder().
			Filter(filter).
			Build()).
		Build()
	resp, err := c.records.Search(ctx, req, c.cred.RequestOptions()...)
	if err != nil {
		return nil, 0, fmt.Errorf("search records: %w", err)
	}
	if err := checkCode("search records", resp.CodeError); err != nil {
		return nil, 0, err
	}
	if resp.Data == nil {
		return nil, 0, nil
	}
	out := make([]Record, 0, len(resp.Data.Items))
	for _, item := range resp.Data.Items {
		if item == nil {
			continue
		}
		out = append(out, Record{ID: deref(item.RecordId), Fields: item.Fields})
	}
	total := len(out)
	if resp.Data.Total != nil {
		total = *resp.Data.Total
	}
	return out, total, nil
}

func (c *Client) CreateBase(ctx context.Context, name, folderToken string) (Base, error) {
	app := larkbitable.NewReqAppBuilder().Name(name)
	if strings.TrimSpace(folderToken) != "" {
		app = app.FolderToken(folderToken)
	}
	req := larkbitable.NewCreateAppReqBuilder().ReqApp(app.Build()).Build()
	resp, err := c.apps.Create(ctx, req, c.cred.RequestOptions()...)
	if err != nil {
		return Base{}, fmt.Errorf("create base: %w", err)
	}
	if err := checkCode("create base", resp.CodeError); err != nil {
		return Base{}, err
	}
	if resp.Data == nil || resp.Data.App == nil || deref(resp.Data.App.AppToken) == "" {
		return Base{}, errors.New("create base: response has no app token")
	}
	return Base{
		AppToken:       deref(resp.Data.App.AppToken),
		DefaultTableID: deref(resp.Data.App.DefaultTableId),
		URL:            deref(resp.Data.App.Url),
	}, nil
}

// CreateTable creates a table whose columns are all text fields.
func (c *Client) CreateTable(ctx context.Context, appToken, name string, columns []string) (string, error) {
	headers := make([]*larkbitable.AppTableCreateHeader, 0, len(columns))
	for _, col := range columns {
		headers = append(headers, larkbitable.NewAppTableCreateHeaderBuilder().
			FieldName(col).
			Type(FieldTypeText).
			Build())
	}
	req := larkbitable.NewCreateAppTableReqBuilder().
		AppToken(appToken).
		Body(larkbitable.NewCreateAppTableReqBodyBuilder().
			Table(larkbitable.NewReqTableBuilder().
				Name(name).
				DefaultViewName(defaultViewName).
				Fields(headers).
				Build()).
			Build()).
		Build()
	resp, err := c.tables.Create(ctx, req, c.cred.RequestOptions()...)
	if err != nil {
		return "", fmt.Errorf("create table: %w", err)
	}
	if err := checkCode("create table", resp.CodeError); err != nil {
		return "", err
	}
	if resp.Data == nil || deref(resp.Data.TableId) == "" {
		return "", errors.New("create table: response has no table id")
	}
	return deref(resp.Data.TableId), nil
}

func (c *Client) ListFields(ctx context.Context, loc config.FeishuLocation) ([]Field, error) {
	if !loc.Complete() {
		return nil, ErrNotConfigured
	}
	var (
		out       []Field
		pageToken string
	)
	for {
		b := larkbitable.NewListAppTableFieldReqBuilder().
			AppToken(loc.AppToken).
			TableId(loc.TableID).
			PageSize(fieldPageSize)
		if pageToken != "" {
			b = b.PageToken(pageToken)
		}
		resp, err := c.fields.List(ctx, b.Build(), c.cred.RequestOptions()...)
		if err != nil {
			return nil, fmt.Errorf("list fields: %w", err)
		}
		if err := checkCode("list fields", resp.CodeError); err != nil {
			return nil, err
		}
		if resp.Data == nil {
			return out, nil
		}
		for _, f := range resp.Data.Items {
			if f == nil {
				continue
			}
			out = append(out, Field{ID: deref(f.FieldId), Name: deref(f.FieldName), Type: derefInt(f.Type)})
		}
		if resp.Data.HasMore == nil || !*resp.Data.HasMore || deref(resp.Data.PageToken) == "" {
			return out, nil
		}
		pageToken = deref(resp.Data.PageToken)
	}
}

func (c *Client) AddField(ctx context.Context, loc config.FeishuLocation, name string, fieldType int) (Field, error) {
	if !loc.Complete() {
		return Field{}, ErrNotConfigured
	}
	req := larkbitable.NewCreateAppTableFieldReqBuilder().
		AppToken(loc.AppToken).
		TableId(loc.TableID).
		AppTableField(larkbitable.NewAppTableFieldBuilder().
			FieldName(name).
			Type(fieldType).
			Build()).
		Build()
	resp, err := c.fields.Create(ctx, req, c.cred.RequestOptions()...)
	if err != nil {
		return Field{}, fmt.Errorf("create field %s: %w", name, err)
	}
	if err := checkCode("create field", resp.CodeError); err != nil {
		return Field{}, err
	}
	field := Field{Name: name, Type: fieldType}
	if resp.Data != nil && resp.Data.Field != nil {
		field.ID = deref(resp.Data.Field.FieldId)
	}
	return field, nil
}

func checkCode(op string, ce larkcore.CodeError) error {
	if ce.Code == 0 {
		return nil
	}
	return &APIError{Op: op, Code: ce.Code, Msg: ce.Msg}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
