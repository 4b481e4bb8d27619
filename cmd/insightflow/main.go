package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jwtly10/insightflow/internal/auth"
	"github.com/jwtly10/insightflow/internal/backtest"
	"github.com/jwtly10/insightflow/internal/config"
	"github.com/jwtly10/insightflow/internal/export"
	"github.com/jwtly10/insightflow/internal/logging"
	"github.com/jwtly10/insightflow/internal/oanda"
	"github.com/jwtly10/insightflow/internal/recorder"
	"github.com/jwtly10/insightflow/internal/scheduler"
	"github.com/jwtly10/insightflow/internal/server"
	"github.com/jwtly10/insightflow/internal/storage"
	"github.com/jwtly10/insightflow/internal/storage/memory"
	"github.com/jwtly10/insightflow/internal/storage/migrations"
	"github.com/jwtly10/insightflow/internal/storage/postgres"
	"github.com/jwtly10/insightflow/internal/strategy"
	"github.com/jwtly10/insightflow/internal/tradingview"
	"github.com/jwtly10/insightflow/internal/types"
)

const usage = `usage: insightflow <command> [flags]

commands:
  backtest   run the DJATR strategy over OANDA or file candles and export the results
  serve      run the analytics API and the heatmap scheduler`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "backtest":
		err = backtestCmd(ctx, os.Args[2:], os.Stdout)
	case "serve":
		err = serveCmd(ctx, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("insightflow failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Topics)
	return cfg, nil
}

type backtestOptions struct {
	candlesFile string
	runID       string
	pine        bool
}

func backtestCmd(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML config")
	candlesFile := fs.String("candles", "", "JSON file of candles to use instead of OANDA")
	outDir := fs.String("out", "", "export directory (overrides backtest.output_dir)")
	runID := fs.String("run-id", "", "id to store the run under (default: random UUID)")
	pine := fs.Bool("pine", false, "write a Pine Script marker file next to the exports")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *outDir != "" {
		cfg.Backtest.OutputDir = *outDir
	}

	return runBacktest(ctx, cfg, backtestOptions{candlesFile: *candlesFile, runID: *runID, pine: *pine}, stdout)
}

func runBacktest(ctx context.Context, cfg *config.Config, opts backtestOptions, stdout io.Writer) error {
	candles, err := loadCandles(ctx, cfg, opts.candlesFile)
	if err != nil {
		return err
	}
	if err := types.ValidateCandles(candles); err != nil {
		return fmt.Errorf("candles: %w", err)
	}
	slog.Info("Loaded candles", "count", len(candles))

	engine := backtest.NewEngine(candles, cfg.Backtest.InitialBalance)
	results := engine.Run(strategy.NewDJATRStrategy())

	results.Calculate().Print(stdout)
	results.PrintTradesBetween(stdout, len(results.Trades)-5, len(results.Trades))

	mode, err := cfg.EquityMode()
	if err != nil {
		return err
	}
	analysis, err := backtest.Analyze(ctx, candles, results.Trades, backtest.EquityOptions{
		InitialBalance: cfg.Backtest.InitialBalance,
		Mode:           mode,
	})
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	files, err := export.WriteFiles(cfg.Backtest.OutputDir, export.Report{
		GeneratedAt: time.Now().UTC(),
		Stats:       analysis.Stats,
		Equity:      analysis.Equity,
		Trades:      results.Trades,
	})
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintf(stdout, "wrote %s\n", f)
	}

	if opts.pine {
		path := filepath.Join(cfg.Backtest.OutputDir, "markers.pine")
		if err := os.WriteFile(path, []byte(tradingview.GeneratePineScript(candles, results.Trades)), 0o644); err != nil {
			return fmt.Errorf("write pine script: %w", err)
		}
		fmt.Fprintf(stdout, "wrote %s\n", path)
	}
	tradingview.DumpPineScript(stdout, candles, results.Trades)

	runID := opts.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	if cfg.Database.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}
		if err := postgres.NewTradeStore(pool).InsertRun(ctx, runID, results.Trades); err != nil {
			return fmt.Errorf("store run %s: %w", runID, err)
		}
		slog.Info("Stored backtest run", "run_id", runID, "trades", len(results.Trades))
	}

	rec, err := openRecorder(cfg)
	if err != nil {
		return err
	}
	defer rec.Close()
	if err := rec.RecordStats(&recorder.StatsRun{
		RunID:       runID,
		Source:      "cli",
		Trades:      len(results.Trades),
		Stats:       analysis.Stats,
		MaxDrawdown: analysis.MaxDrawdown,
	}); err != nil {
		slog.Error("record stats", "error", err)
	}

	fmt.Fprintf(stdout, "run %s: win rate %.2f%%, total P&L %.2f, avg R:R %.2f, max drawdown %.2f%%\n",
		runID, analysis.Stats.WinRate, analysis.Stats.TotalPnL, analysis.Stats.AvgRR, analysis.MaxDrawdown)
	return nil
}

func loadCandles(ctx context.Context, cfg *config.Config, file string) ([]types.Candle, error) {
	if file != "" {
		return readCandlesFile(file)
	}

	if cfg.Oanda.AccountID == "" || cfg.Oanda.APIKey == "" {
		return nil, errors.New("OANDA_ACCOUNT_ID and OANDA_API_KEY are required without -candles")
	}
	client := oanda.NewOandaService(cfg.Oanda.AccountID, cfg.Oanda.APIKey, cfg.Oanda.APIURL, nil)

	to := time.Now()
	return client.FetchCandles(ctx, oanda.CandleRequest{
		Instrument:  oanda.InstrumentName(cfg.Oanda.Instrument),
		Granularity: oanda.CandlestickGranularity(cfg.Oanda.Granularity),
		From:        to.AddDate(0, 0, -cfg.Oanda.LookbackDays),
		To:          to,
	})
}

func readCandlesFile(path string) ([]types.Candle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candles: %w", err)
	}
	var candles []types.Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		return nil, fmt.Errorf("parse candles %s: %w", path, err)
	}
	return candles, nil
}

func openRecorder(cfg *config.Config) (recorder.Recorder, error) {
	if cfg.Database.SQLitePath == "" {
		return recorder.NoopRecorder{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	return recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
}

func serveCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	var (
		strategies storage.StrategyStore = memory.NewStrategyStore()
		trades     storage.TradeStore    = memory.NewTradeStore()
	)
	if cfg.Database.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}
		strategies = postgres.NewStrategyStore(pool)
		trades = postgres.NewTradeStore(pool)
		slog.Info("Using postgres storage")
	} else {
		slog.Warn("POSTGRES_DSN not set, using in-memory storage")
	}

	rec, err := openRecorder(cfg)
	if err != nil {
		return err
	}
	defer rec.Close()

	sched := scheduler.NewScheduler(ctx, strategies, rec)
	if err := sched.Register(cfg.Schedule.HeatmapCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	mode, err := cfg.EquityMode()
	if err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Strategies: strategies,
		Trades:     trades,
		Heatmaps:   sched,
		Auth:       auth.NewService(auth.NewMemoryUserRepository(), 0),
		Recorder:   rec,
		Metrics:    server.NewMetrics("insightflow"),
		Equity:     backtest.EquityOptions{InitialBalance: cfg.Backtest.InitialBalance, Mode: mode},
	})
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
