package web

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bluelx/janus-console/pkg/apperr"
	"github.com/bluelx/janus-console/pkg/engine"
	"github.com/bluelx/janus-console/pkg/export"
	"github.com/bluelx/janus-console/pkg/logging"
	"github.com/bluelx/janus-console/pkg/storage"
)

// respondEnvelope forwards a gateway response to the browser. Remote
// failure codes pass through inside the envelope; only local failures map
// to HTTP error statuses.
func respondEnvelope(w http.ResponseWriter, resp *engine.Response, err error) {
	if err != nil {
		switch apperr.GetCode(err) {
		case apperr.CodeInvalidInput:
			respondError(w, http.StatusBadRequest, err)
		case apperr.CodeFileMissing:
			respondError(w, http.StatusNotFound, err)
		case apperr.CodeFileTooLarge:
			respondError(w, http.StatusBadRequest, err)
		default:
			respondError(w, http.StatusBadGateway, err)
		}
		return
	}
	respondJSON(w, map[string]any{
		"success": true,
		"data":    resp,
	})
}

// --- configuration ---

type remoteConfigView struct {
	URL         string `json:"url"`
	NamespaceID string `json:"namespaceId"`
	Username    string `json:"username"`
	EngineTag   string `json:"engineTag"`
	TokenSet    bool   `json:"tokenSet"`
	NetworkLogs bool   `json:"networkLogs"`
}

func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	cfg, _ := s.snapshot()
	respondJSON(w, map[string]any{
		"success": true,
		"data": remoteConfigView{
			URL:         cfg.Remote.URL,
			NamespaceID: cfg.Remote.NamespaceID,
			Username:    cfg.Remote.Username,
			EngineTag:   cfg.Remote.EngineTag,
			TokenSet:    cfg.Remote.Token != "",
			NetworkLogs: cfg.Remote.NetworkLogs,
		},
	})
}

type configUpdateRequest struct {
	Token       *string `json:"token"`
	URL         *string `json:"url"`
	NamespaceID *string `json:"namespaceId"`
	Username    *string `json:"username"`
	EngineTag   *string `json:"engineTag"`
}

func (s *Server) handleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.configLimiter.Allow() {
		respondError(w, http.StatusTooManyRequests,
			apperr.New(apperr.CodeInvalidInput, "too many configuration updates, slow down"))
		return
	}

	var req configUpdateRequest
	if status, err := decodeJSONBody(w, r, &req, maxBodyBytesTiny); err != nil {
		respondError(w, status, err)
		return
	}

	cfg, _ := s.snapshot()
	remote := cfg.Remote
	if req.Token != nil {
		remote.Token = strings.TrimSpace(*req.Token)
	}
	if req.URL != nil {
		remote.URL = strings.TrimSpace(*req.URL)
	}
	if req.NamespaceID != nil {
		remote.NamespaceID = strings.TrimSpace(*req.NamespaceID)
	}
	if req.Username != nil {
		remote.Username = strings.TrimSpace(*req.Username)
	}
	if req.EngineTag != nil {
		remote.EngineTag = strings.TrimSpace(*req.EngineTag)
	}

	trial := *cfg
	trial.Remote = remote
	if err := trial.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, apperr.Wrap(err, apperr.CodeConfigInvalid, err.Error()))
		return
	}

	if s.store != nil {
		persist := map[string]*string{
			storage.SettingRemoteToken:     req.Token,
			storage.SettingRemoteURL:       req.URL,
			storage.SettingRemoteNamespace: req.NamespaceID,
			storage.SettingRemoteUsername:  req.Username,
		}
		for key, value := range persist {
			if value == nil {
				continue
			}
			if err := s.store.SetSetting(key, *value); err != nil {
				respondError(w, http.StatusInternalServerError,
					apperr.Wrap(err, apperr.CodeStorageWrite, "persist setting"))
				return
			}
		}
	}

	s.SwapRemote(remote)

	respondJSON(w, map[string]any{
		"success": true,
		"message": "configuration updated",
	})
}

// --- gateway passthrough ---

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	_, client := s.snapshot()
	resp, err := client.UserInfo(r.Context())
	respondEnvelope(w, resp, err)
}

func (s *Server) handleLocalDataList(w http.ResponseWriter, r *http.Request) {
	cfg, client := s.snapshot()
	namespaceID := r.URL.Query().Get("namespaceId")
	if namespaceID == "" {
		namespaceID = cfg.Remote.NamespaceID
	}
	resp, err := client.LocalDataList(r.Context(), namespaceID)
	respondEnvelope(w, resp, err)
}

func (s *Server) handlePartnerDataList(w http.ResponseWriter, r *http.Request) {
	cfg, client := s.snapshot()
	q := r.URL.Query()
	query := engine.PartnerListQuery{
		PageNum:   parseIntDefault(q.Get("pageNum"), 1),
		PageSize:  parseIntDefault(q.Get("pageSize"), 10),
		EngineTag: q.Get("engineTag"),
		Username:  q.Get("username"),
	}
	if query.EngineTag == "" {
		query.EngineTag = cfg.Remote.EngineTag
	}
	if query.Username == "" {
		query.Username = cfg.Remote.Username
	}
	resp, err := client.PartnerDataList(r.Context(), query)
	respondEnvelope(w, resp, err)
}

func (s *Server) handlePartnerDataColumns(w http.ResponseWriter, r *http.Request) {
	_, client := s.snapshot()
	metano := r.URL.Query().Get("metano")
	resp, err := client.PartnerDataColumns(r.Context(), metano)
	respondEnvelope(w, resp, err)
}

// --- bulk export ---

type exportRequest struct {
	Metano string `json:"metano"`
	Format string `json:"format,omitempty"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if status, err := decodeJSONBody(w, r, &req, maxBodyBytesTiny); err != nil {
		respondError(w, status, err)
		return
	}
	if strings.TrimSpace(req.Metano) == "" {
		respondError(w, http.StatusBadRequest, apperr.New(apperr.CodeInvalidInput, "metano is required"))
		return
	}

	cfg, client := s.snapshot()
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		respondError(w, http.StatusBadRequest, apperr.Wrap(err, apperr.CodeInvalidInput, err.Error()))
		return
	}
	if req.Format == "" {
		format, _ = export.ParseFormat(cfg.Export.Format)
	}

	exporter := export.New(client, cfg.Export.Dir, format, export.WithLogger(s.logger))
	result, runErr := exporter.Run(r.Context(), req.Metano, export.Options{})

	s.recordExportJob(req.Metano, result)

	if result.OK() {
		metricExportJobs.WithLabelValues("success").Inc()
		metricExportRows.Add(float64(result.Rows))
		respondJSON(w, map[string]any{"success": true, "data": result})
		return
	}
	metricExportJobs.WithLabelValues("failure").Inc()
	if apperr.IsCode(runErr, apperr.CodeInvalidInput) {
		respondError(w, http.StatusBadRequest, runErr)
		return
	}
	// The run failed remotely or mid-write; the result carries the gateway
	// code so the UI can show it alongside the message.
	respondJSON(w, map[string]any{"success": false, "data": result})
}

func (s *Server) recordExportJob(metano string, result export.Result) {
	if s.store == nil {
		return
	}
	err := s.store.SaveExportJob(&storage.ExportJob{
		JobID:    result.JobID,
		Metano:   metano,
		Path:     result.Path,
		Format:   string(result.Format),
		Code:     result.Code,
		Message:  result.Message,
		Rows:     result.Rows,
		Pages:    result.Pages,
		Duration: result.Duration.Milliseconds(),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn(logging.CategoryExport, "job_record_failed", err.Error(), map[string]any{
			"job_id": result.JobID,
		})
	}
}

func (s *Server) handleExportJobs(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	jobs, err := s.store.ListExportJobs(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, apperr.Wrap(err, apperr.CodeStorageRead, "list export jobs"))
		return
	}
	if jobs == nil {
		jobs = []*storage.ExportJob{}
	}
	respondJSON(w, map[string]any{"success": true, "data": jobs})
}

// --- reporting ---

type taskReportRequest struct {
	TaskID      string `json:"taskId"`
	Status      string `json:"status"`
	ExecTime    string `json:"execTime"`
	TotalTime   int    `json:"totalTime"`
	NamespaceID string `json:"namespaceId"`
}

func (s *Server) handleTaskReport(w http.ResponseWriter, r *http.Request) {
	var req taskReportRequest
	if status, err := decodeJSONBody(w, r, &req, maxBodyBytesTiny); err != nil {
		respondError(w, status, err)
		return
	}
	cfg, client := s.snapshot()
	if req.NamespaceID == "" {
		req.NamespaceID = cfg.Remote.NamespaceID
	}
	if req.ExecTime == "" {
		req.ExecTime = time.Now().UTC().Format(time.RFC3339)
	}
	resp, err := client.ReportTask(r.Context(), engine.TaskReport{
		TaskID:      req.TaskID,
		Status:      req.Status,
		ExecTime:    req.ExecTime,
		TotalTime:   req.TotalTime,
		NamespaceID: req.NamespaceID,
	})
	respondEnvelope(w, resp, err)
}

type auditReportRequest struct {
	Action      string `json:"action"`
	Description string `json:"description"`
	Module      string `json:"module"`
	NamespaceID string `json:"namespaceId"`
	Username    string `json:"username"`
}

func (s *Server) handleAuditReport(w http.ResponseWriter, r *http.Request) {
	var req auditReportRequest
	if status, err := decodeJSONBody(w, r, &req, maxBodyBytesTiny); err != nil {
		respondError(w, status, err)
		return
	}
	cfg, client := s.snapshot()
	if req.NamespaceID == "" {
		req.NamespaceID = cfg.Remote.NamespaceID
	}
	if req.Username == "" {
		req.Username = cfg.Remote.Username
	}
	resp, err := client.ReportAudit(r.Context(), engine.AuditRecord{
		NamespaceID: req.NamespaceID,
		Username:    req.Username,
		Action:      req.Action,
		Description: req.Description,
		Module:      req.Module,
	})

	// Audit entries are mirrored locally so the trail survives gateway
	// outages. Local validation failures are not mirrored.
	if s.store != nil && !apperr.IsCode(err, apperr.CodeInvalidInput) {
		entry := &storage.AuditEntry{
			NamespaceID: req.NamespaceID,
			Username:    req.Username,
			Action:      req.Action,
			Description: req.Description,
			Module:      req.Module,
		}
		if resp != nil {
			entry.RemoteCode = resp.Code
		}
		if mirrorErr := s.store.RecordAuditLog(entry); mirrorErr != nil && s.logger != nil {
			s.logger.Warn(logging.CategoryAudit, "mirror_failed", mirrorErr.Error(), nil)
		}
	}

	respondEnvelope(w, resp, err)
}

type networkReportRequest struct {
	NamespaceID string `json:"namespaceId"`
	NetworkIP   string `json:"networkIp"`
	AccessIP    string `json:"accessIp"`
}

func (s *Server) handleNetworkReport(w http.ResponseWriter, r *http.Request) {
	var req networkReportRequest
	if status, err := decodeJSONBody(w, r, &req, maxBodyBytesTiny); err != nil {
		respondError(w, status, err)
		return
	}
	cfg, client := s.snapshot()
	if req.NamespaceID == "" {
		req.NamespaceID = cfg.Remote.NamespaceID
	}
	resp, err := client.ReportNetwork(r.Context(), engine.NetworkReport{
		NamespaceID: req.NamespaceID,
		NetworkIP:   req.NetworkIP,
		AccessIP:    req.AccessIP,
	})
	respondEnvelope(w, resp, err)
}

type orderReportRequest struct {
	NamespaceID   string `json:"namespaceId"`
	OrderType     string `json:"orderType"`
	RequestParam  string `json:"requestParam"`
	ResultAddress string `json:"resultAddress"`
	OrderID       string `json:"orderId"`
}

func (s *Server) handleOrderReport(w http.ResponseWriter, r *http.Request) {
	var req orderReportRequest
	if status, err := decodeJSONBody(w, r, &req, maxBodyBytesTiny); err != nil {
		respondError(w, status, err)
		return
	}
	cfg, client := s.snapshot()
	if req.NamespaceID == "" {
		req.NamespaceID = cfg.Remote.NamespaceID
	}
	resp, err := client.ReportOrder(r.Context(), engine.OrderReport{
		NamespaceID:   req.NamespaceID,
		OrderType:     req.OrderType,
		RequestParam:  req.RequestParam,
		ResultAddress: req.ResultAddress,
		OrderID:       req.OrderID,
	})
	respondEnvelope(w, resp, err)
}

// --- file upload ---

// uploadBodySlack covers multipart framing overhead on top of the payload
// ceiling.
const uploadBodySlack = 1 << 20

func (s *Server) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, engine.MaxUploadSize+uploadBodySlack)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		respondError(w, http.StatusBadRequest,
			apperr.Wrap(err, apperr.CodeInvalidInput, "parse multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest,
			apperr.New(apperr.CodeInvalidInput, "form field 'file' is required"))
		return
	}
	defer file.Close()

	fileName := r.FormValue("fileName")
	if fileName == "" {
		fileName = filepath.Base(header.Filename)
	}
	if fileName == "" || fileName == "." {
		respondError(w, http.StatusBadRequest,
			apperr.New(apperr.CodeInvalidInput, "file name is required"))
		return
	}

	tmp, err := os.CreateTemp("", "janus-upload-*")
	if err != nil {
		respondError(w, http.StatusInternalServerError,
			apperr.Wrap(err, apperr.CodeInternal, "stage upload"))
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	written, err := io.Copy(tmp, file)
	closeErr := tmp.Close()
	if err != nil || closeErr != nil {
		if err == nil {
			err = closeErr
		}
		respondError(w, http.StatusInternalServerError,
			apperr.Wrap(err, apperr.CodeInternal, "stage upload"))
		return
	}

	_, client := s.snapshot()
	resp, err := client.UploadFile(r.Context(), tmpPath, fileName)
	if err == nil && resp.OK() {
		metricUploadBytes.Add(float64(written))
	}
	respondEnvelope(w, resp, err)
}

// --- diagnostics ---

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	cfg, client := s.snapshot()
	if cfg.Remote.URL == "" {
		respondError(w, http.StatusBadRequest,
			apperr.New(apperr.CodeConfigInvalid, "remote URL is not configured"))
		return
	}
	if err := client.Ping(r.Context()); err != nil {
		respondJSON(w, map[string]any{
			"success":  false,
			"endpoint": client.Endpoint(),
			"message":  err.Error(),
		})
		return
	}
	respondJSON(w, map[string]any{
		"success":  true,
		"endpoint": client.Endpoint(),
		"message":  "gateway reachable",
	})
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cfg, client := s.snapshot()
	status := map[string]any{
		"success":       true,
		"uptimeSeconds": int(time.Since(s.startedAt).Seconds()),
		"endpoint":      client.Endpoint(),
		"namespaceId":   cfg.Remote.NamespaceID,
		"exportDir":     cfg.Export.Dir,
		"exportFormat":  cfg.Export.Format,
		"storage":       s.store != nil,
	}
	respondJSON(w, status)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"status":"ok"}`)
}
