package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"fraudwatch/internal/blocklist"
	"fraudwatch/internal/config"
	"fraudwatch/internal/counter"
	"fraudwatch/internal/database"
	"fraudwatch/internal/fraud"
	"fraudwatch/internal/geoip"
	purchasequeue "fraudwatch/internal/jobs/queue/purchases"
	"fraudwatch/internal/jobs/runtime"
	"fraudwatch/internal/support"
)

// Run wires the engine to its backends and consumes purchase events until
// interrupted.
func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	log.SetLevel(log.DebugLevel)

	if _, err := database.SetupDB(); err != nil {
		return err
	}

	redisClient, err := support.GetRedisClient()
	if err != nil {
		return err
	}
	defer func() {
		if err := support.CloseRedisClient(); err != nil {
			log.Warn("error closing redis client", "error", err)
		}
	}()

	if geoIPPath := support.GetEnv("GEOIP_DB_PATH", ""); geoIPPath != "" {
		if err := geoip.Open(geoIPPath); err != nil {
			log.Warn("GeoIP enrichment disabled", "error", err)
		} else {
			defer geoip.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := blocklist.Initialize(ctx); err != nil {
		return err
	}

	sweepCancel := runtime.LaunchBlockedObjectSweep(ctx, runtime.DefaultSweepInterval)
	defer sweepCancel()

	engine := fraud.NewEngine(
		config.NewRedisProvider(redisClient),
		counter.NewRedisCounter(redisClient, counter.FailedPurchasesNamespace),
	)

	queue := purchasequeue.NewRedisPurchaseQueue(redisClient)
	log.Info("Fraud engine ready, consuming purchase events")
	queue.Consume(ctx, func(ctx context.Context, purchaseID uint64) {
		purchase, err := database.GetPurchaseByID(ctx, purchaseID)
		if err != nil {
			log.Error("Failed to load purchase for evaluation", "purchase_id", purchaseID, "error", err)
			return
		}
		if purchase == nil {
			log.Warn("Purchase event for unknown purchase", "purchase_id", purchaseID)
			return
		}
		engine.EvaluatePurchase(ctx, purchase)
	})

	return nil
}
