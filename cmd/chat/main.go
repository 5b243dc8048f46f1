package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"public-chat/internal/client"
	"public-chat/internal/config"
	"public-chat/internal/feed"
	"public-chat/internal/tui"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chat: %v\n", err)
		os.Exit(1)
	}

	// The screen belongs to the UI; logs go to a file.
	logFile, err := tea.LogToFile(getEnv("CHAT_LOG_FILE", "chat.log"), "chat")
	if err != nil {
		fmt.Fprintf(os.Stderr, "chat: open log: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	c, err := client.New(cfg.Endpoint, cfg.Project)
	if err != nil {
		log.Fatalf("failed to build client: %v", err)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := feed.New(cfg.Feed, client.NewDatabases(c), client.NewStorage(c), client.NewRealtime(c))
	defer ctrl.Teardown()

	p := tea.NewProgram(tui.New(ctx, client.NewAccount(c), ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	// Changes may fire from inside Update; never block the event loop on them.
	ctrl.SetOnChange(func() { go p.Send(tui.ChangedMsg{}) })

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		log.Printf("chat exited: %v", err)
		fmt.Fprintf(os.Stderr, "chat: %v\n", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
