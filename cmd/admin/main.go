package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"go.uber.org/zap"

	"github.com/jafarshop/groceryadmin/internal/apiclient"
	"github.com/jafarshop/groceryadmin/internal/app"
	"github.com/jafarshop/groceryadmin/internal/config"
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app.App, args []string) error
}

var commands = map[string]command{
	"login":     {"login <phone> <password>", runLogin},
	"logout":    {"logout", runLogout},
	"whoami":    {"whoami", runWhoami},
	"inventory": {"inventory [--search s] [--category c] [--price label] [--stock IN|LOW|OUT] [--page n]", runInventory},
	"product":   {"product add|edit|image|enable|disable|delete|csv ...", runProduct},
	"orders":    {"orders [--status s] [--phone p] [--from YYYY-MM-DD] [--to YYYY-MM-DD] [--page n] [--watch]", runOrders},
	"order":     {"order show|advance|cancel|assign|receipt <id> ...", runOrder},
	"delivery":  {"delivery [--status s] [--page n] [--assign phone --ids 1,2,3] [--watch]", runDelivery},
	"feedback":  {"feedback [--phone p] [--page n]", runFeedback},
	"issues":    {"issues [--status s] [--severity s] [--page n] [--watch]", runIssues},
	"issue":     {"issue acknowledge|resolve <id> <current-status>", runIssue},
	"dashboard": {"dashboard [--watch]", runDashboard},
	"audit":     {"audit [--limit n]", runAudit},
}

func usage() {
	fmt.Println("Usage: go run cmd/admin/main.go <command> [args]")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s\n", commands[name].usage)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, apiclient.WithNavigator(func(route string) {
		fmt.Fprintf(os.Stderr, "Session expired. Run: admin login <phone> <password>\n")
	}))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}

	err = cmd.run(ctx, a, os.Args[2:])
	if cerr := a.Close(); cerr != nil {
		logger.Warn("Failed to release resources", zap.Error(cerr))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
