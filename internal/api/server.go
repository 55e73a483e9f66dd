package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/cors"

	"HederaDEX-Agent/internal/dex"
	"HederaDEX-Agent/internal/dexapi"
	"HederaDEX-Agent/internal/task"
	"HederaDEX-Agent/internal/web3"
	"HederaDEX-Agent/pkg/logger"
)

// JobService 是作业接口依赖的能力。
type JobService interface {
	Submit(ctx context.Context, req task.SubmitRequest) (*task.Job, error)
	Get(ctx context.Context, id string) (*task.Job, error)
	List(ctx context.Context, opts ...task.ListOption) ([]*task.Job, error)
	Stats(ctx context.Context, opts ...task.ListOption) (task.JobStats, error)
}

// DexService 是只读 DEX 接口依赖的能力。
type DexService interface {
	DefaultNetwork() string
	Quote(ctx context.Context, req dex.QuoteRequest) (dex.Quote, error)
	QuoteExactOutput(ctx context.Context, req dex.QuoteRequest) (dex.Quote, error)
	Position(ctx context.Context, network, tokenSN string) (dex.Position, error)
}

// MetadataClient 查询 DEX 索引服务。
type MetadataClient interface {
	Pools(ctx context.Context, network string) ([]dexapi.Pool, error)
	Positions(ctx context.Context, network, accountID string) ([]dexapi.PositionNFT, error)
}

// ChainInspector 报告网络的链上状态，用于就绪检查。
type ChainInspector interface {
	Snapshot(ctx context.Context, network string) (web3.ChainSnapshot, error)
}

// HTTPObserver 记录每个请求的路由、状态码与耗时。
type HTTPObserver interface {
	ObserveHTTPRequest(handler, method string, status int, duration time.Duration)
}

// Options 控制监听地址与中间件。
type Options struct {
	Address         string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RatePerMinute   int
	// Metrics 非空时挂载到 /metrics。
	Metrics http.Handler
}

// Dependencies 汇总各接口的后端。为空的依赖对应的路由返回 503。
type Dependencies struct {
	Jobs     JobService
	Dex      DexService
	Metadata MetadataClient
	Chain    ChainInspector
	Observer HTTPObserver
}

// Server 负责暴露 REST 接口。
type Server struct {
	opts    Options
	deps    Dependencies
	handler http.Handler
}

// NewServer 构造 API 服务实例。
func NewServer(opts Options, deps Dependencies) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{opts: opts, deps: deps}
	s.handler = s.routes()
	return s
}

// Handler 返回完整的路由，便于测试或嵌入其他服务。
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.instrument)
	if s.opts.RatePerMinute > 0 {
		r.Use(httprate.LimitByIP(s.opts.RatePerMinute, time.Minute))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", s.handleReady)
	if s.opts.Metrics != nil {
		r.Handle("/metrics", s.opts.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/stats", s.handleJobStats)
		r.Get("/jobs/{id}", s.handleJobDetail)
		r.Get("/quote", s.handleQuote)
		r.Get("/pools", s.handlePools)
		r.Get("/positions/{account}", s.handleAccountPositions)
		r.Get("/liquidity/{tokenSN}", s.handlePosition)
	})

	if len(s.opts.AllowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}).Handler(r)
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("API 服务启动", slog.String("address", s.opts.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// instrument 记录请求日志并上报指标，路由名取 chi 的路由模板以控制标签基数。
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		if s.deps.Observer != nil {
			s.deps.Observer.ObserveHTTPRequest(route, r.Method, status, elapsed)
		}
		logger.L().Debug("http request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("duration", elapsed),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				logger.L().Error("请求处理 panic", slog.Any("panic", rvr), slog.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "INTERNAL", http.StatusText(http.StatusInternalServerError))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
