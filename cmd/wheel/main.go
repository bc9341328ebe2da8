package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"JackpotWheel/internal/config"
	"JackpotWheel/internal/coordinator"
	"JackpotWheel/internal/degen"
	"JackpotWheel/internal/entries"
	"JackpotWheel/internal/ledger"
	"JackpotWheel/internal/notifier"
	"JackpotWheel/internal/poller"
	"JackpotWheel/internal/profile"
	"JackpotWheel/internal/recorder"
	"JackpotWheel/internal/server"
	"JackpotWheel/internal/store"
	"JackpotWheel/internal/wheel"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] JackpotWheel starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init ledger client
	var client ledger.Client
	if cfg.Ledger.BaseURL != "" {
		client = ledger.NewHTTPClient(cfg.Ledger.BaseURL, cfg.Ledger.APIKey, cfg.Proxy)
	} else {
		log.Println("[WARN] no ledger configured, running against the mock ledger")
		client = ledger.NewMockClient(30 * time.Second)
	}
	log.Printf("[INFO] ledger: %s", client.Name())

	// Init profile cache
	var profiles profile.Service
	if cfg.Profile.BaseURL != "" {
		profiles = profile.NewHTTPService(cfg.Profile.BaseURL, cfg.Proxy)
	}
	profileCache := profile.NewCache(profiles, cfg.ProfileTTL(), cfg.ProfileThrottle())

	// Init degen analyzer with its persistent store
	st, err := store.NewFileStore(cfg.Degen.StateDir)
	if err != nil {
		log.Fatalf("[FATAL] init state store: %v", err)
	}
	analyzer := degen.NewAnalyzer(st, cfg.DegenWindow())

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init poller and coordinator
	p := poller.New(client, cfg.Ledger.Account, cfg.PollInterval())
	coord := coordinator.New(ctx, coordinator.Options{
		Client:   client,
		Poller:   p,
		Entries:  entries.NewCache(client),
		Profiles: profileCache,
		Recorder: rec,
		Notifier: tn,
		Analyzer: analyzer,
		Wheel: wheel.Config{
			TargetTiles:  cfg.Wheel.TargetTiles,
			MaxBaseTiles: cfg.Wheel.MaxBaseTiles,
			StripRepeats: cfg.Wheel.StripRepeats,
			SlowDelay:    time.Duration(cfg.Wheel.SlowDelay) * time.Second,
			SpinDuration: time.Duration(cfg.Wheel.SpinDuration) * time.Second,
			ResultHold:   time.Duration(cfg.Wheel.ResultHold) * time.Second,
		},
		Account: cfg.Ledger.Account,
	})
	if err := coord.RegisterJobs(cfg.Schedule.HousekeepCron, cfg.Schedule.SummaryCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	coord.Start()
	defer coord.Stop()

	go p.Run(ctx)
	go coord.Run(ctx)

	// Start the HTTP/websocket state server
	srv := server.New(coord, coord)
	go func() {
		if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
			log.Fatalf("[FATAL] http server: %v", err)
		}
	}()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, coord.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	log.Println("[INFO] JackpotWheel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] JackpotWheel stopped")
}
