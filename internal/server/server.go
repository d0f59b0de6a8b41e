package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/fieldreport/internal/authorization"
	"github.com/smallbiznis/fieldreport/internal/config"
	"github.com/smallbiznis/fieldreport/internal/observability"
	obsmiddleware "github.com/smallbiznis/fieldreport/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/fieldreport/internal/observability/metrics"
	obstracing "github.com/smallbiznis/fieldreport/internal/observability/tracing"
	"github.com/smallbiznis/fieldreport/internal/ratelimit"
	"github.com/smallbiznis/fieldreport/internal/report"
	reportdomain "github.com/smallbiznis/fieldreport/internal/report/domain"
	"github.com/smallbiznis/fieldreport/internal/statistics"
	statisticsdomain "github.com/smallbiznis/fieldreport/internal/statistics/domain"
	"github.com/smallbiznis/fieldreport/internal/user"
	userdomain "github.com/smallbiznis/fieldreport/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	user.Module,
	report.Module,
	statistics.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID", HeaderActorID},
			ExposeHeaders:    []string{"X-Request-ID", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(cfg, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine            *gin.Engine
	cfg               config.Config
	db                *gorm.DB
	users             userdomain.Repository
	reportSvc         reportdomain.Service
	statisticsSvc     statisticsdomain.Service
	submissionLimiter *ratelimit.SubmissionLimiter
	obsMetrics        *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin               *gin.Engine
	Cfg               config.Config
	DB                *gorm.DB
	Users             userdomain.Repository
	ReportSvc         reportdomain.Service
	StatisticsSvc     statisticsdomain.Service
	SubmissionLimiter *ratelimit.SubmissionLimiter `optional:"true"`
	ObsMetrics        *obsmetrics.Metrics          `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:            p.Gin,
		cfg:               p.Cfg,
		db:                p.DB,
		users:             p.Users,
		reportSvc:         p.ReportSvc,
		statisticsSvc:     p.StatisticsSvc,
		submissionLimiter: p.SubmissionLimiter,
		obsMetrics:        p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.ActorRequired())

	// -------- Reports --------
	api.POST("/reports", s.SubmissionRateLimit(), s.SubmitReport)
	api.GET("/reports", s.ListMyReports)
	api.GET("/reports/by-date/:date", s.GetReportByDate)
	api.DELETE("/reports/:id", s.DeleteReport)

	// -------- Report lines --------
	api.PUT("/performance-lines/:id", s.UpdatePerformanceLine)
	api.DELETE("/performance-lines/:id", s.DeletePerformanceLine)
	api.PUT("/opportunity-lines/:id", s.UpdateOpportunityLine)
	api.DELETE("/opportunity-lines/:id", s.DeleteOpportunityLine)

	// -------- Statistics --------
	api.GET("/statistics", s.GetStatistics)
	api.GET("/statistics/branches", s.GetBranchSales)
	api.GET("/statistics/reports", s.ListReports)
	api.GET("/managers", s.ListManagers)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
