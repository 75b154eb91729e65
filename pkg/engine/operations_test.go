package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluelx/janus-console/pkg/apperr"
	"github.com/bluelx/janus-console/pkg/config"
)

// capturingServer records every envelope it receives and answers success.
type capturingServer struct {
	envelopes []Envelope
}

func (cs *capturingServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env Envelope
		_ = json.NewDecoder(r.Body).Decode(&env)
		cs.envelopes = append(cs.envelopes, env)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"code": CodeSuccess, "message": "ok"})
	})
}

func (cs *capturingServer) last(t *testing.T) Envelope {
	t.Helper()
	require.NotEmpty(t, cs.envelopes)
	return cs.envelopes[len(cs.envelopes)-1]
}

func newCapturingClient(t *testing.T) (*Client, *capturingServer) {
	t.Helper()
	cs := &capturingServer{}
	srv := httptest.NewServer(cs.handler())
	t.Cleanup(srv.Close)
	return New(config.RemoteConfig{URL: srv.URL, Token: "tok"}, t.TempDir()), cs
}

func TestOperationMethodsAndParams(t *testing.T) {
	client, cs := newCapturingClient(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		call       func() (*Response, error)
		wantMethod string
		wantParams map[string]any
	}{
		{
			name:       "user info",
			call:       func() (*Response, error) { return client.UserInfo(ctx) },
			wantMethod: MethodUserInfo,
			wantParams: map[string]any{},
		},
		{
			name:       "local data list",
			call:       func() (*Response, error) { return client.LocalDataList(ctx, "jg0200008300000500") },
			wantMethod: MethodLocalDataList,
			wantParams: map[string]any{"namespaceId": "jg0200008300000500"},
		},
		{
			name: "partner data list applies paging defaults",
			call: func() (*Response, error) {
				return client.PartnerDataList(ctx, PartnerListQuery{EngineTag: "tag", Username: "admin007"})
			},
			wantMethod: MethodPartnerDataList,
			wantParams: map[string]any{
				"pageNum": float64(1), "pageSize": float64(10),
				"engineTAG": "tag", "username": "admin007",
			},
		},
		{
			name:       "partner data columns",
			call:       func() (*Response, error) { return client.PartnerDataColumns(ctx, "2257188319") },
			wantMethod: MethodPartnerDataColumns,
			wantParams: map[string]any{"metano": "2257188319"},
		},
		{
			name: "report task",
			call: func() (*Response, error) {
				return client.ReportTask(ctx, TaskReport{
					TaskID: "12345678abc2", Status: "success",
					ExecTime: "2025-06-05T11:15:23Z", TotalTime: 300,
					NamespaceID: "JG0100006200000000",
				})
			},
			wantMethod: MethodReportTask,
			wantParams: map[string]any{
				"taskId": "12345678abc2", "status": "success",
				"execTime": "2025-06-05T11:15:23Z", "totalTime": float64(300),
				"namespaceId": "JG0100006200000000",
			},
		},
		{
			name: "report audit",
			call: func() (*Response, error) {
				return client.ReportAudit(ctx, AuditRecord{
					NamespaceID: "JG0100006200000000", Username: "admin",
					Action: "query", Description: "queried user info", Module: "console",
				})
			},
			wantMethod: MethodReportAudit,
			wantParams: map[string]any{
				"spaceName": "JG0100006200000000", "userName": "admin",
				"action": "query", "description": "queried user info", "module": "console",
			},
		},
		{
			name: "report network",
			call: func() (*Response, error) {
				return client.ReportNetwork(ctx, NetworkReport{
					NamespaceID: "jg0100006200000000",
					NetworkIP:   "127.0.0.1:1001", AccessIP: "127.0.0.1:9977",
				})
			},
			wantMethod: MethodReportNetwork,
			wantParams: map[string]any{
				"namespace": "jg0100006200000000",
				"networkIp": "127.0.0.1:1001", "accessIp": "127.0.0.1:9977",
			},
		},
		{
			name: "report order",
			call: func() (*Response, error) {
				return client.ReportOrder(ctx, OrderReport{
					NamespaceID: "jg0100006200000000", OrderType: "file",
					ResultAddress: "64adaetag",
				})
			},
			wantMethod: MethodReportOrder,
			wantParams: map[string]any{
				"namespace": "jg0100006200000000", "orderType": "file",
				"requestParam": "", "resultAddress": "64adaetag", "orderId": "",
			},
		},
		{
			name:       "fetch page",
			call:       func() (*Response, error) { return client.FetchPage(ctx, "225819277", 1000, 2) },
			wantMethod: MethodRangeDelivery,
			wantParams: map[string]any{
				"metano": "225819277", "limit": float64(1000), "offset": float64(2),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.call()
			require.NoError(t, err)
			require.True(t, resp.OK())

			env := cs.last(t)
			assert.True(t, strings.HasPrefix(env.Method, tt.wantMethod+"."),
				"method %q should start with %q", env.Method, tt.wantMethod)
			assert.Equal(t, tt.wantParams, env.Content.Param)
		})
	}
}

func TestOperationLocalValidation(t *testing.T) {
	client, cs := newCapturingClient(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() (*Response, error)
	}{
		{"local data list without namespace", func() (*Response, error) { return client.LocalDataList(ctx, " ") }},
		{"partner columns without metano", func() (*Response, error) { return client.PartnerDataColumns(ctx, "") }},
		{"task report without id", func() (*Response, error) { return client.ReportTask(ctx, TaskReport{Status: "success"}) }},
		{"audit without action", func() (*Response, error) { return client.ReportAudit(ctx, AuditRecord{Description: "d"}) }},
		{"network without ips", func() (*Response, error) { return client.ReportNetwork(ctx, NetworkReport{}) }},
		{"order without address", func() (*Response, error) { return client.ReportOrder(ctx, OrderReport{OrderType: "api"}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.call()
			require.NotNil(t, resp)
			assert.Equal(t, CodeBadRequest, resp.Code)
			assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))
		})
	}

	// Validation failures must never hit the wire.
	assert.Empty(t, cs.envelopes)
}
