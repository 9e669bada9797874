package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/labstack/gommon/random"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openmercato/mercato/config"
	"github.com/openmercato/mercato/internal/adminapi"
	"github.com/openmercato/mercato/internal/alert"
	"github.com/openmercato/mercato/internal/app"
	"github.com/openmercato/mercato/internal/catalog"
	"github.com/openmercato/mercato/internal/checkout"
	"github.com/openmercato/mercato/internal/webserver"
	"github.com/openmercato/mercato/internal/whatsapp"
)

var (
	configFile = flag.String("c", "/etc/mercato.yml", "config file path")
	initDb     = flag.Bool("initdb", false, "drop and recreate all tables, then exit")
	showVer    = flag.Bool("v", false, "print version and exit")
)

var version = "dev"

func main() {
	flag.Parse()
	if *showVer {
		fmt.Println("mercato", version)
		return
	}

	cfg := config.LoadConfig(*configFile)
	cfg.InitDirs()

	generatedToken := ""
	if cfg.Whatsapp.VerifyToken == "" {
		// the webhook verify handshake needs a shared token even before
		// the operator configures one
		cfg.Whatsapp.VerifyToken = random.String(24)
		generatedToken = cfg.Whatsapp.VerifyToken
	}

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initDb {
		application.InitDb()
		zap.L().Info("database initialized")
		return
	}

	if generatedToken != "" {
		zap.L().Info("generated webhook verify token", zap.String("token", generatedToken))
	}

	db := application.DB()

	checkoutSvc := checkout.NewService(db, application.Bus())
	if tol := application.GetSettingsStringValue("checkout", "total_tolerance"); tol != "" {
		checkoutSvc.SetTolerance(cast.ToFloat64(tol))
	}

	dedup, err := alert.OpenDedupStore(filepath.Join(cfg.System.Workdir, "data", "alerts.db"))
	if err != nil {
		zap.L().Fatal("failed to open alert store", zap.Error(err))
	}
	defer dedup.Close()

	notifier := alert.NewNotifier(db, dedup, cfg.Smtp, int(application.GetSettingsInt64Value("stock", "low_threshold")))
	if err := notifier.Subscribe(application.Bus()); err != nil {
		zap.L().Fatal("failed to subscribe stock alerts", zap.Error(err))
	}

	responder := whatsapp.NewResponder(db,
		application.GetSettingsStringValue("store", "name"),
		application.GetSettingsStringValue("responder", "greeting"),
		int(application.GetSettingsInt64Value("responder", "max_results")))
	whatsappSvc := whatsapp.NewService(db, cfg.Whatsapp, responder)

	syncer := catalog.NewSyncer(db, cfg.Catalog)

	application.RegisterTask(app.TaskCatalogSync, syncer.SyncAll)
	application.RegisterTask(app.TaskLowStockDigest, notifier.Digest)

	ws := webserver.Init(application)
	adminapi.Init(adminapi.Deps{
		Checkout: checkoutSvc,
		Whatsapp: whatsappSvc,
		Catalog:  syncer,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application.StartBackgroundJobs(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ws.Listen()
	})
	g.Go(func() error {
		<-ctx.Done()
		return ws.Echo().Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		zap.L().Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}
