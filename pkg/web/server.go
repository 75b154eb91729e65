// Package web serves the console HTTP API: thin handlers that translate
// browser requests into gateway RPC calls, plus the bulk-export and upload
// endpoints and the static UI.
package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/time/rate"

	"github.com/bluelx/janus-console/pkg/config"
	"github.com/bluelx/janus-console/pkg/engine"
	"github.com/bluelx/janus-console/pkg/logging"
	"github.com/bluelx/janus-console/pkg/storage"
)

// Server hosts the console API. The gateway client is swappable: a config
// update builds a fresh client and retires the old one, so handlers always
// see a consistent credential snapshot.
type Server struct {
	mu     sync.RWMutex
	cfg    *config.Config
	client *engine.Client

	store          *storage.Store
	logger         *logging.Logger
	allowedOrigins []string
	startedAt      time.Time

	// configLimiter throttles remote-config updates, which tear down and
	// rebuild the gateway client.
	configLimiter *rate.Limiter

	httpServer *http.Server
}

// NewServer builds the console server. Settings persisted in the store
// override the file configuration, so credentials saved through the UI
// survive restarts.
func NewServer(cfg *config.Config, store *storage.Store, logger *logging.Logger) *Server {
	merged := mergeStoredSettings(cfg, store, logger)

	s := &Server{
		cfg:            merged,
		store:          store,
		logger:         logger,
		allowedOrigins: merged.Server.AllowedOrigins,
		startedAt:      time.Now(),
		configLimiter:  rate.NewLimiter(rate.Every(time.Second), 5),
	}
	s.client = engine.New(merged.Remote, merged.Logging.Dir)
	return s
}

// mergeStoredSettings overlays persisted remote settings onto the file
// config.
func mergeStoredSettings(cfg *config.Config, store *storage.Store, logger *logging.Logger) *config.Config {
	merged := *cfg
	if store == nil {
		return &merged
	}
	settings, err := store.GetSettings(storage.AllowedSettingKeys)
	if err != nil {
		if logger != nil {
			logger.Warn(logging.CategoryConfig, "settings_load_failed", err.Error(), nil)
		}
		return &merged
	}
	if v, ok := settings[storage.SettingRemoteToken]; ok {
		merged.Remote.Token = v
	}
	if v, ok := settings[storage.SettingRemoteURL]; ok {
		merged.Remote.URL = v
	}
	if v, ok := settings[storage.SettingRemoteNamespace]; ok {
		merged.Remote.NamespaceID = v
	}
	if v, ok := settings[storage.SettingRemoteUsername]; ok {
		merged.Remote.Username = v
	}
	return &merged
}

// snapshot returns the current config and client under the read lock.
func (s *Server) snapshot() (*config.Config, *engine.Client) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.client
}

// SwapRemote replaces the remote configuration and rebuilds the gateway
// client. The old client is closed after the swap; in-flight requests hold
// their own reference and finish against the old snapshot.
func (s *Server) SwapRemote(remote config.RemoteConfig) {
	s.mu.Lock()
	old := s.client
	updated := *s.cfg
	updated.Remote = remote
	s.cfg = &updated
	s.client = engine.New(remote, updated.Logging.Dir)
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	if s.logger != nil {
		s.logger.Info(logging.CategoryConfig, "remote_updated", "gateway client rebuilt", map[string]any{
			"url":          remote.URL,
			"namespace_id": remote.NamespaceID,
		})
	}
}

// Reload applies a freshly loaded file configuration. Only the remote
// section takes effect at runtime; server binding changes need a restart.
func (s *Server) Reload(cfg *config.Config) {
	merged := mergeStoredSettings(cfg, s.store, s.logger)
	s.SwapRemote(merged.Remote)
}

// Router builds the chi router with the full route set.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.securityHeadersMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", s.handleConfigGet)
		r.Post("/config", s.handleConfigUpdate)

		r.Get("/user/info", s.handleUserInfo)

		r.Get("/data/local/list", s.handleLocalDataList)
		r.Get("/data/partner/list", s.handlePartnerDataList)
		r.Get("/data/partner/columns", s.handlePartnerDataColumns)
		r.Post("/data/export", s.handleExport)
		r.Get("/data/export/jobs", s.handleExportJobs)

		r.Post("/task/report", s.handleTaskReport)
		r.Post("/audit/report", s.handleAuditReport)
		r.Post("/network/report", s.handleNetworkReport)
		r.Post("/order/report", s.handleOrderReport)

		r.Post("/file/upload", s.handleFileUpload)

		r.Get("/test/connection", s.handleTestConnection)
		r.Get("/system/status", s.handleSystemStatus)
	})

	r.Get("/healthz", s.handleHealthz)
	r.Get("/metrics", s.handleMetrics)

	s.mountStaticUI(r)

	return r
}

// mountStaticUI serves the bundled web UI when a static directory is
// configured.
func (s *Server) mountStaticUI(r chi.Router) {
	staticDir := s.cfg.Server.StaticDir
	if staticDir == "" {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			respondJSON(w, map[string]any{
				"service": "janus-console",
				"status":  "ok",
			})
		})
		return
	}
	fileServer := http.FileServer(http.Dir(staticDir))
	r.Handle("/*", fileServer)
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	handler := h2c.NewHandler(s.Router(), &http2.Server{})

	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.BindAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	if s.logger != nil {
		s.logger.Info(logging.CategoryWeb, "server_started", "listening", map[string]any{
			"addr": s.cfg.Server.BindAddress,
		})
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.closeClient()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) closeClient() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.Close()
	}
}
