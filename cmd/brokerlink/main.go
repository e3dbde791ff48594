package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/songzhibin97/brokerlink/internal/configs"
	"github.com/songzhibin97/brokerlink/internal/utils/logger"
)

var (
	flagconf string
	flagenv  string

	log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelInfo,
	}))
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
	flag.StringVar(&flagenv, "env", ".env", "dotenv file with secrets, ignored when missing")
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: brokerlink [flags] <command> [args]

commands:
  accounts                       show the resolved trading account
  orders                         list active orders
  cancel [ORDER_ID...]           cancel active orders, all when no id is given
  buy FIGI LOTS [PRICE]          place a buy order, limit when PRICE is given
  sell FIGI LOTS [PRICE]         place a sell order, limit when PRICE is given
  portfolio [currencies|securities]
  instrument FIGI                show instrument details
  events [-since 24h]            list stored audit events

flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if err := godotenv.Load(flagenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("Error loading env file", "file", flagenv, "err", err)
	}

	config, err := configs.Load(flagconf)
	if err != nil {
		log.Error("Error loading config", "err", err)
		os.Exit(1)
	}

	configured, err := logger.New(config.LoggerOptions())
	if err != nil {
		log.Error("Error creating logger", "err", err)
		os.Exit(1)
	}
	log = configured
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, config, os.Stdout, log)
	if err != nil {
		log.Error("Error initializing", "err", err)
		os.Exit(1)
	}

	err = app.Run(ctx, flag.Args())
	app.Close()
	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			flag.Usage()
			os.Exit(2)
		}
		log.Error("Command failed", "err", err)
		os.Exit(1)
	}
}
