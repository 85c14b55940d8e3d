package main

import (
	"context"
	"flag"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"go-parley/internal/infrastructure/api"
	"go-parley/internal/infrastructure/archive/adapter"
	archiveport "go-parley/internal/infrastructure/archive/port"
	"go-parley/internal/infrastructure/config"
	"go-parley/internal/tui"
)

func main() {
	room := flag.String("room", "", "join this room directly instead of browsing the list")
	register := flag.Bool("register", false, "create the account before logging in")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	client := api.NewClient(cfg.ServerURL, cfg.Username)
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	} else if cfg.Password != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if *register {
			if err := client.Register(ctx, cfg.Password); err != nil {
				cancel()
				log.Fatalf("register: %v", err)
			}
		}
		if _, err := client.Login(ctx, cfg.Password); err != nil {
			cancel()
			log.Fatalf("login: %v", err)
		}
		cancel()
	}

	var store archiveport.Store
	if cfg.ArchiveDir != "" {
		s, err := adapter.Open(cfg.ArchiveDir)
		if err != nil {
			log.Printf("local archive disabled: %v", err)
		} else {
			store = s
			defer s.Close()
		}
	}

	p := tea.NewProgram(tui.New(cfg, client, store, *room), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("ui: %v", err)
	}
}
