package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"eventchat/internal/ai"
	"eventchat/internal/api"
	"eventchat/internal/config"
	"eventchat/internal/conversation"
	"eventchat/internal/db"
	"eventchat/internal/dialog"
	"eventchat/internal/event"
	"eventchat/internal/geo"
	"eventchat/internal/notify"
	redisdb "eventchat/internal/redis"
	"eventchat/internal/search"
	"eventchat/internal/tools"
)

func main() {
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := db.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	rdb := redisdb.NewClient(cfg)

	aiClient := ai.NewClient(cfg.AI)
	searcher := search.NewClient(cfg.Search)
	geocoder := geo.NewClient(cfg.Geocode)
	pages := tools.NewPageExtractor(15*time.Second, "eventchat/1.0")

	engine := dialog.NewEngine(
		db.DB,
		event.NewStore(db.DB),
		conversation.NewStore(db.DB),
		aiClient,
		searcher,
		geocoder,
		pages,
	)

	// Reminder dispatcher
	if cfg.Reminders.Enabled {
		var sender notify.Sender = notify.LogSender{}
		if cfg.Mail.Enabled {
			sender = notify.NewSMTPSender(cfg.Mail)
		}
		dispatcher := notify.NewDispatcher(
			db.DB,
			event.NewStore(db.DB),
			sender,
			time.Duration(cfg.Reminders.CheckIntervalMinutes)*time.Minute,
		)
		dispatcher.Start()
		defer dispatcher.Stop()
	} else {
		log.Printf("[Main] Reminder dispatcher disabled in config")
	}

	r := api.SetupRouter(cfg, rdb, engine)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Starting server on %s%s\n", addr, cfg.Server.Subpath)
	if err := r.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
