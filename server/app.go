package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mydaylogs/config"
	"mydaylogs/internal/admin"
	"mydaylogs/internal/billing"
	"mydaylogs/internal/cache"
	"mydaylogs/internal/controller"
	"mydaylogs/internal/cron"
	"mydaylogs/internal/db"
	"mydaylogs/internal/health"
	"mydaylogs/internal/httpapi"
	"mydaylogs/internal/limits"
	"mydaylogs/internal/logs"
	"mydaylogs/internal/middleware"
	"mydaylogs/internal/models"
	"mydaylogs/internal/repo"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type App struct {
	cfg        *config.Config
	db         *gorm.DB
	Router     *mux.Router
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	/* 1) Logging */
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	/* 2) Database */
	d, err := db.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	a.db = d

	if err := a.db.AutoMigrate(
		&models.Organization{},
		&models.Profile{},
		&models.Subscription{},
		&models.SubscriptionActivityLog{},
		&models.AuditLog{},
		&models.TaskTemplate{},
		&models.TemplateAssignment{},
		&models.SubmittedReport{},
	); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	/* 3) Stores and services */
	orgs := repo.NewOrgStore(a.db)
	subs := repo.NewSubscriptionStore(a.db)
	activity := repo.NewActivityStore(a.db)
	usage := repo.NewUsageStore(a.db)
	tasks := repo.NewTaskStore(a.db)

	provider := billing.NewStripeProvider(a.cfg.Stripe.APIKey)
	fetcher := billing.NewFetcher(provider)
	rec := controller.NewReconciler(subs, activity, fetcher)
	rec.PriceMap = map[string]string{
		a.cfg.Stripe.GrowthPriceID: "growth",
		a.cfg.Stripe.ScalePriceID:  "scale",
	}
	eval := limits.NewEvaluator(orgs, subs, usage)
	mem := cache.NewMemory()

	/* 4) Router + middleware */
	a.Router = mux.NewRouter().StrictSlash(true)
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
	)

	/* 5) Health */
	health.RegisterRoutesWithDB(a.Router, a.db) // /healthz, /readyz

	/* 6) Tenant API */
	httpapi.RegisterRoutes(a.Router, a.cfg.Admin.JWTSecret, &httpapi.Handler{
		Tasks:  tasks,
		Orgs:   orgs,
		Subs:   subs,
		Eval:   eval,
		Syncer: rec,
		Cache:  mem,
		Audit:  activity,
	})

	/* 7) Stripe webhook (signature-authenticated, no session) */
	wh := billing.NewWebhookHandler(a.cfg.Stripe.WebhookSecret, rec)
	a.Router.Handle("/api/webhooks/stripe", wh).Methods(http.MethodPost)

	/* 8) Cron endpoints */
	cron.RegisterRoutes(a.Router, a.cfg.Cron.Secret, &cron.Jobs{
		Subs:      subs,
		Orgs:      orgs,
		Plans:     subs,
		Cleanup:   usage,
		Activity:  activity,
		Syncer:    rec,
		Evaluator: eval,
	})

	/* 9) Admin console */
	admin.Attach(a.Router, admin.Dependencies{
		Orgs:     orgs,
		Subs:     subs,
		Activity: activity,
		Rec:      rec,
		Billing:  provider,
		Auth: &admin.Authorizer{
			MasterPassword: a.cfg.Admin.MasterPassword,
			JWTSecret:      a.cfg.Admin.JWTSecret,
			Profiles:       orgs,
		},
		Cache:     mem,
		TrialDays: a.cfg.Billing.TrialDays,
	})

	/* Log known routes at startup */
	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		log.Printf("route: %-6v %s", methods, path)
		return nil
	})
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		logs.Logger.Infof("shutdown signal: %s", s)
		a.cancel()
	}()

	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Logger.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	return nil
}
