package engine

import (
	"context"
	"strings"

	"github.com/bluelx/janus-console/pkg/apperr"
)

// Gateway operation names. The routing suffix is appended by BuildEnvelope.
const (
	MethodUserInfo           = "info.user.paas"
	MethodLocalDataList      = "list.data.local.engine.paas"
	MethodPartnerDataList    = "list.resource.receive.auth.paas"
	MethodPartnerDataColumns = "detail.partner.metaset.paas"
	MethodReportTask         = "save.task.engine.paas"
	MethodReportAudit        = "record.operate.audit.paas"
	MethodReportNetwork      = "report.network.engine.paas"
	MethodReportOrder        = "report.order.engine.paas"
	MethodUploadFile         = "upload.file.engine.paas"
	MethodRangeDelivery      = "range.delivery.paas"
)

// UserInfo fetches the current user identity. Doubles as the login check:
// an unauthenticated token yields a remote failure code.
func (c *Client) UserInfo(ctx context.Context) (*Response, error) {
	return c.Invoke(ctx, MethodUserInfo, nil)
}

// LocalDataList returns the identifiers of local data assets in a
// namespace. Pair with an Exporter run to materialize the rows.
func (c *Client) LocalDataList(ctx context.Context, namespaceID string) (*Response, error) {
	if strings.TrimSpace(namespaceID) == "" {
		return localError(CodeBadRequest, "namespaceId is required"),
			apperr.New(apperr.CodeInvalidInput, "namespaceId is required")
	}
	return c.Invoke(ctx, MethodLocalDataList, map[string]any{
		"namespaceId": namespaceID,
	})
}

// PartnerListQuery filters the paginated partner-shared dataset listing.
type PartnerListQuery struct {
	PageNum   int
	PageSize  int
	EngineTag string
	Username  string
}

// PartnerDataList lists datasets partners have shared with this node.
func (c *Client) PartnerDataList(ctx context.Context, q PartnerListQuery) (*Response, error) {
	if q.PageNum <= 0 {
		q.PageNum = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 10
	}
	return c.Invoke(ctx, MethodPartnerDataList, map[string]any{
		"pageNum":   q.PageNum,
		"pageSize":  q.PageSize,
		"engineTAG": q.EngineTag,
		"username":  q.Username,
	})
}

// PartnerDataColumns fetches column metadata for a partner dataset.
func (c *Client) PartnerDataColumns(ctx context.Context, metano string) (*Response, error) {
	if strings.TrimSpace(metano) == "" {
		return localError(CodeBadRequest, "metano is required"),
			apperr.New(apperr.CodeInvalidInput, "metano is required")
	}
	return c.Invoke(ctx, MethodPartnerDataColumns, map[string]any{
		"metano": metano,
	})
}

// TaskReport describes a task execution outcome.
type TaskReport struct {
	TaskID      string
	Status      string
	ExecTime    string // RFC 3339 timestamp
	TotalTime   int    // seconds
	NamespaceID string
}

// ReportTask reports a task completion status to the platform.
func (c *Client) ReportTask(ctx context.Context, r TaskReport) (*Response, error) {
	if strings.TrimSpace(r.TaskID) == "" || strings.TrimSpace(r.Status) == "" {
		return localError(CodeBadRequest, "taskId and status are required"),
			apperr.New(apperr.CodeInvalidInput, "taskId and status are required")
	}
	return c.Invoke(ctx, MethodReportTask, map[string]any{
		"taskId":      r.TaskID,
		"status":      r.Status,
		"execTime":    r.ExecTime,
		"totalTime":   r.TotalTime,
		"namespaceId": r.NamespaceID,
	})
}

// AuditRecord describes an operator action for the platform audit trail.
type AuditRecord struct {
	NamespaceID string
	Username    string
	Action      string
	Description string
	Module      string
}

// ReportAudit records an operator action on the platform.
func (c *Client) ReportAudit(ctx context.Context, r AuditRecord) (*Response, error) {
	if strings.TrimSpace(r.Action) == "" || strings.TrimSpace(r.Description) == "" {
		return localError(CodeBadRequest, "action and description are required"),
			apperr.New(apperr.CodeInvalidInput, "action and description are required")
	}
	return c.Invoke(ctx, MethodReportAudit, map[string]any{
		"spaceName":   r.NamespaceID,
		"userName":    r.Username,
		"action":      r.Action,
		"description": r.Description,
		"module":      r.Module,
	})
}

// NetworkReport carries this node's reachability info.
type NetworkReport struct {
	NamespaceID string
	NetworkIP   string // mesh address, "IP:PORT"
	AccessIP    string // UI entry point, "IP:PORT"
}

// ReportNetwork reports network reachability info to the platform.
func (c *Client) ReportNetwork(ctx context.Context, r NetworkReport) (*Response, error) {
	if strings.TrimSpace(r.NetworkIP) == "" || strings.TrimSpace(r.AccessIP) == "" {
		return localError(CodeBadRequest, "networkIp and accessIp are required"),
			apperr.New(apperr.CodeInvalidInput, "networkIp and accessIp are required")
	}
	return c.Invoke(ctx, MethodReportNetwork, map[string]any{
		"namespace": r.NamespaceID,
		"networkIp": r.NetworkIP,
		"accessIp":  r.AccessIP,
	})
}

// OrderReport points the platform at a computation order's result. For
// "api" orders the address is a service endpoint; for "file" orders it is
// the storage handle returned by UploadFile.
type OrderReport struct {
	NamespaceID   string
	OrderType     string // "api" or "file"
	RequestParam  string
	ResultAddress string
	OrderID       string
}

// ReportOrder reports a computation order's result location.
func (c *Client) ReportOrder(ctx context.Context, r OrderReport) (*Response, error) {
	if strings.TrimSpace(r.OrderType) == "" || strings.TrimSpace(r.ResultAddress) == "" {
		return localError(CodeBadRequest, "orderType and resultAddress are required"),
			apperr.New(apperr.CodeInvalidInput, "orderType and resultAddress are required")
	}
	return c.Invoke(ctx, MethodReportOrder, map[string]any{
		"namespace":     r.NamespaceID,
		"orderType":     r.OrderType,
		"requestParam":  r.RequestParam,
		"resultAddress": r.ResultAddress,
		"orderId":       r.OrderID,
	})
}

// FetchPage retrieves one bounded slice of a dataset's rows.
func (c *Client) FetchPage(ctx context.Context, metano string, limit, offset int) (*Response, error) {
	return c.Invoke(ctx, MethodRangeDelivery, map[string]any{
		"metano": metano,
		"limit":  limit,
		"offset": offset,
	})
}
