package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledgerplan/internal/app"
	"github.com/dvloznov/ledgerplan/internal/clock"
	"github.com/dvloznov/ledgerplan/internal/config"
	"github.com/dvloznov/ledgerplan/internal/logger"
)

// cliEnv is what every command runs against.
type cliEnv struct {
	cfg     config.Config
	log     zerolog.Logger
	backend *app.Backend
	clock   clock.Clock
	out     io.Writer
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, env *cliEnv, args []string) error
}

var commands = []command{
	{"import", "Preview an obligations file and optionally commit it", runImport},
	{"calendar", "Show upcoming payments", runCalendar},
	{"statements", "List available monthly statements for a card", runStatements},
	{"export", "Export a monthly statement as CSV (file, gs:// or stdout)", runExport},
	{"account", "Create or update a card", runAccount},
	{"transactions", "Load transactions from a statement CSV", runTransactions},
	{"upload", "Upload a local file to GCS", runUpload},
	{"watch", "Print the calendar and statements whenever data changes", runWatch},
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	name := os.Args[1]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage(os.Stdout)
		return
	}

	cmd, ok := findCommand(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Invalid configuration")
	}
	log, err := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: os.Stderr})
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Invalid logger configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	backend, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}

	env := &cliEnv{cfg: cfg, log: log, backend: backend, clock: clock.NewReal(), out: os.Stdout}
	runErr := cmd.run(ctx, env, os.Args[2:])
	if err := backend.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close store")
	}
	if runErr != nil {
		log.Fatal().Err(runErr).Str("command", name).Msg("Command failed")
	}
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Ledgerplan CLI")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  cli <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-13s %s\n", c.name, c.usage)
	}
	fmt.Fprintf(w, "  %-13s %s\n", "help", "Show this help message")
	fmt.Fprintln(w, "\nRun 'cli <command> -h' for more information on a command.")
	fmt.Fprintln(w, "Storage is chosen by STORE_BACKEND; the memory backend persists to DATA_FILE.")
}
