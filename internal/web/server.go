// Package web serves the planning JSON API over gin.
package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"operaflow/internal/events"
	"operaflow/internal/log"
	"operaflow/internal/metrics"
	"operaflow/internal/model"
	"operaflow/internal/store"
)

// Backend is the storage the API serves. *store.Store implements it.
type Backend interface {
	ListTasks(ctx context.Context, f store.Filter) ([]model.Task, error)
	GetTask(ctx context.Context, id int64) (model.Task, error)
	CreateTask(ctx context.Context, t model.Task) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	UpdateDates(ctx context.Context, u model.DateUpdate) (model.Task, error)
	UpdateProgress(ctx context.Context, u model.ProgressUpdate) (model.Task, error)
	BatchUpdateDates(ctx context.Context, items []model.DateUpdate) ([]model.ItemResult, error)
	ListTaskEvents(ctx context.Context, taskID int64, limit int) ([]model.TaskEvent, error)
	ListAffaires(ctx context.Context) ([]model.Affaire, error)
	CreateAffaire(ctx context.Context, a model.Affaire) (model.Affaire, error)
	FindAffaireByCode(ctx context.Context, code string) (model.Affaire, error)
}

type Config struct {
	Addr string
	// JWTSecret turns on bearer-token auth for /api when non-empty.
	JWTSecret    string
	AllowOrigins []string
	Logger       *log.Logger
	Metrics      *metrics.Metrics
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Bus      *events.Bus
}

type Server struct {
	cfg     Config
	backend Backend
	logger  *log.Logger
	engine  *gin.Engine
}

func NewServer(backend Backend, cfg Config) (*Server, error) {
	if backend == nil {
		return nil, errors.New("web: backend is nil")
	}
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	s := &Server{cfg: cfg, backend: backend, logger: cfg.Logger.With("component", "web")}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.requestLogger(), s.recordMetrics())

	corsCfg := cors.DefaultConfig()
	if len(s.cfg.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = s.cfg.AllowOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AddAllowHeaders("Authorization", requestIDHeader)
	corsCfg.AddExposeHeaders(requestIDHeader)
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.HandlerFor(s.cfg.Gatherer)))
	}

	api := r.Group("/api")
	if s.cfg.JWTSecret != "" {
		api.Use(bearerAuth([]byte(s.cfg.JWTSecret)))
	}
	api.GET("/tasks", s.listTasks)
	api.POST("/tasks", s.createTask)
	api.GET("/tasks.csv", s.exportTasks)
	api.POST("/tasks/import", s.importTasks)
	api.POST("/tasks/dates/batch", s.batchUpdateDates)
	api.GET("/tasks/:id", s.getTask)
	api.DELETE("/tasks/:id", s.deleteTask)
	api.PATCH("/tasks/:id/dates", s.updateDates)
	api.PATCH("/tasks/:id/progress", s.updateProgress)
	api.GET("/tasks/:id/events", s.listTaskEvents)
	api.GET("/affaires", s.listAffaires)
	api.POST("/affaires", s.createAffaire)
	api.GET("/events", s.streamEvents)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.cfg.Addr == "" {
		return errors.New("web: addr is empty")
	}
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("stopped")
	return nil
}
