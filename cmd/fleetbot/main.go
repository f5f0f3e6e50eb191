package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetbot/config"
	"fleetbot/engine"
	"fleetbot/messaging"
	"fleetbot/store"
	"fleetbot/www"
)

const version = "dev"

func main() {
	configPath := flag.String("config", "fleetbot.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if *port > 0 {
		cfg.Web.Port = *port
	}

	// Open record store
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create and start engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		LogFunc:    log.Printf,
		Debug:      *debug,
	})
	eng.Start()
	defer eng.Stop()

	// Set up messaging
	msgClient := messaging.NewClient(&cfg.Messaging, cfg.ClientID(), cfg.KafkaGroupID())
	defer msgClient.Close()
	if err := msgClient.Connect(); err != nil {
		log.Printf("messaging connect: %v (will retry via outbox)", err)
	} else {
		// Outbox drainer for replies and reports queued while disconnected
		drainer := messaging.NewOutboxDrainer(db, msgClient, &cfg.Messaging)
		drainer.Start()
		defer drainer.Stop()

		sender := messaging.NewSender(msgClient, db, cfg.NodeID, cfg.Messaging.RepliesTopic)

		// Inbound conversation events from the gateway
		gw := messaging.NewGateway(eng.Router(), sender, cfg.NodeID)
		if err := gw.Start(msgClient, cfg.Messaging.EventsTopic); err != nil {
			log.Printf("gateway subscribe: %v", err)
		} else {
			log.Printf("gateway listening on %s (node=%s)", cfg.Messaging.EventsTopic, cfg.NodeID)
		}

		// Node liveness announcements
		hb := messaging.NewHeartbeater(msgClient, cfg.NodeID, version, cfg.Messaging.FleetTopic)
		hb.Start()
		defer hb.Stop()

		// Upstream fleet reports and dispatch delivery
		reporter := messaging.NewReporter(msgClient, db, sender, cfg.NodeID, cfg.Messaging.FleetTopic)
		reporter.Start(eng.Events)
		defer reporter.Stop()
	}

	// Set up HTTP server
	router := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Printf("FleetBot listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}
}
