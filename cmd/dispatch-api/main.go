// README: Entry point; loads config, wires services, starts HTTP server and
// the background dispatchers.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dispatch/internal/config"
	httptransport "dispatch/internal/http"
	"dispatch/internal/infra"
	"dispatch/internal/maps"
	"dispatch/internal/modules/agent"
	"dispatch/internal/modules/assignment"
	"dispatch/internal/modules/location"
	"dispatch/internal/modules/matching"
	"dispatch/internal/modules/order"
	"dispatch/internal/modules/pricing"
	"dispatch/internal/notify"
)

func main() {
	log := infra.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	outbox := notify.NewOutbox(dbPool)
	publisher := notify.NewRedisPublisher(redisClient)
	dispatcher := notify.NewDispatcher(outbox, publisher, log,
		time.Duration(cfg.Outbox.TickMillis)*time.Millisecond, cfg.Outbox.BatchSize)

	agentStore := agent.NewStore(dbPool)
	agentSvc := agent.NewService(agentStore, log)

	orderStore := order.NewStore(dbPool)
	orderSvc := order.NewService(orderStore, orderStore, dispatcher, log)

	var eta assignment.ETA
	if cfg.Maps.APIKey != "" {
		etaSvc, err := maps.NewETAService(cfg.Maps.APIKey)
		if err != nil {
			log.WithError(err).Warn("maps client init failed, using haversine ETA")
		} else {
			eta = etaSvc
		}
	}

	assignStore := assignment.NewStore(dbPool, agentStore)
	coordinator := assignment.NewCoordinator(assignStore, eta, outbox, dispatcher, log)

	matchStore := matching.NewStore(dbPool)
	matchSvc := matching.NewService(matchStore, orderStore, coordinator, cfg.Matching, log)

	locationStore := location.NewStore(dbPool, redisClient)
	locationSvc := location.NewService(locationStore, orderStore, outbox, log)

	pricingSvc := pricing.NewService(pricing.NewStore(dbPool), log)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Assigner:  coordinator,
		Lifecycle: orderSvc,
		Locator:   locationSvc,
		Recorder:  locationSvc,
		Agents:    agentSvc,
		Finder:    matchSvc,
		Quoter:    pricingSvc,
		Log:       log,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go dispatcher.Run(ctx)
	go matchSvc.RunAutoDispatch(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", cfg.HTTP.Addr).Info("dispatch api listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
