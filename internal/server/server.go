package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/propera/internal/audit"
	auditdomain "github.com/smallbiznis/propera/internal/audit/domain"
	"github.com/smallbiznis/propera/internal/bill"
	billdomain "github.com/smallbiznis/propera/internal/bill/domain"
	"github.com/smallbiznis/propera/internal/config"
	"github.com/smallbiznis/propera/internal/metrics"
	"github.com/smallbiznis/propera/internal/notifier"
	"github.com/smallbiznis/propera/internal/payment"
	paymentdomain "github.com/smallbiznis/propera/internal/payment/domain"
	"github.com/smallbiznis/propera/internal/pricing"
	"github.com/smallbiznis/propera/internal/property"
	propertydomain "github.com/smallbiznis/propera/internal/property/domain"
	"github.com/smallbiznis/propera/internal/revenue"
	revenuedomain "github.com/smallbiznis/propera/internal/revenue/domain"
	"github.com/smallbiznis/propera/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	metrics.Module,
	fx.Provide(NewEngine),
	audit.Module,
	pricing.Module,
	property.Module,
	bill.Module,
	payment.Module,
	notifier.Module,
	revenue.Module,
	scheduler.Module,
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	billSvc    billdomain.Service
	paymentSvc paymentdomain.Service
	lookups    propertydomain.LookupService
	revenueSvc revenuedomain.Service
	auditSvc   auditdomain.Service
	scheduler  *scheduler.Scheduler
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	BillSvc    billdomain.Service
	PaymentSvc paymentdomain.Service
	Lookups    propertydomain.LookupService
	RevenueSvc revenuedomain.Service
	AuditSvc   auditdomain.Service
	Scheduler  *scheduler.Scheduler
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http"),
		billSvc:    p.BillSvc,
		paymentSvc: p.PaymentSvc,
		lookups:    p.Lookups,
		revenueSvc: p.RevenueSvc,
		auditSvc:   p.AuditSvc,
		scheduler:  p.Scheduler,
	}
}

func registerRoutes(s *Server) {
	v1 := s.engine.Group("/v1")

	v1.POST("/bills", s.CreateBill)
	v1.GET("/bills/:id", s.GetBill)
	v1.PATCH("/bills/:id", s.UpdateBill)
	v1.DELETE("/bills/:id", s.CancelBill)
	v1.POST("/bills/:id/reconcile", s.ReconcileBill)

	v1.POST("/payments", s.ProcessPayment)
	v1.GET("/payments/:id", s.GetPayment)
	v1.PATCH("/payments/:id/status", s.UpdatePaymentStatus)
	v1.POST("/payments/:id/refund", s.RefundPayment)

	v1.POST("/billing-runs/attachments", s.RunAttachmentBilling)
	v1.POST("/billing-runs/recurring", s.RunRecurringBilling)
	v1.POST("/properties/:id/billing-runs", s.RunPropertyBilling)

	v1.GET("/reports/revenue/:year", s.RevenueSummary)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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
