package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jwtly10/smartbreakout/internal/binance"
	"github.com/jwtly10/smartbreakout/internal/config"
	"github.com/jwtly10/smartbreakout/internal/execution"
	"github.com/jwtly10/smartbreakout/internal/logging"
	"github.com/jwtly10/smartbreakout/internal/marketcache"
	"github.com/jwtly10/smartbreakout/internal/metrics"
	"github.com/jwtly10/smartbreakout/internal/notify"
	"github.com/jwtly10/smartbreakout/internal/oanda"
	"github.com/jwtly10/smartbreakout/internal/runner"
	"github.com/jwtly10/smartbreakout/internal/strategy"
	"github.com/jwtly10/smartbreakout/internal/types"
)

var (
	configPath string
	envFile    string
	logFile    string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "smartbreakout",
		Short: "Breakout and retest signal runner",
		Long: `smartbreakout fetches recent candles, looks for a breakout above the
prior range followed by a retest of the broken level, and when one is found
places a market order and announces it on Telegram.

Each invocation evaluates the strategy once; schedule it with cron or similar.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runOnce,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Settings file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Optional .env file with credentials")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", logging.DefaultLogPath, "Trade log file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(testSignalCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func testSignalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-signal",
		Short: "Send a fixed test signal to the configured Telegram channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(configPath, envFile)
			if err != nil {
				return err
			}

			tg := notify.NewTelegram(settings.Telegram.BotToken, settings.Telegram.ChannelUsername, slog.Default())
			if !tg.Configured() {
				fmt.Println("Telegram settings missing. Ensure telegram.bot_token and telegram.channel_username are set in " + configPath)
				return nil
			}

			if err := tg.Send(cmd.Context(), notify.TestMessage()); err != nil {
				return fmt.Errorf("failed to send test signal: %w", err)
			}
			fmt.Printf("📢 Telegram notification sent to %s\n", tg.Channel)
			return nil
		},
	}
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, closer, err := logging.Setup(logFile, logLevel)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(log)

	settings, err := config.Load(configPath, envFile)
	if err != nil {
		log.Error("Failed to load settings", "error", err)
		return err
	}
	if err := settings.Validate(); err != nil {
		log.Error("Invalid settings", "error", err)
		return err
	}

	mode := binance.ParseMode(settings.Mode)
	client := binance.NewClient(settings.ApiKey, settings.ApiSecret, mode)

	source, cleanup, err := candleSource(settings, client, log)
	if err != nil {
		log.Error("Failed to set up market data", "error", err)
		return err
	}
	defer cleanup()

	risk := settings.Strategy()
	m := metrics.New()

	engine := runner.NewEngine(
		runner.Config{
			Symbol:   settings.Symbol,
			Interval: settings.Timeframe,
			Limit:    binance.DefaultCandleLimit,
			Quantity: settings.Quantity,
		},
		source,
		strategy.NewBreakoutRetest(risk),
		execution.NewExecutor(client, mode, risk, log),
		notify.NewTelegram(settings.Telegram.BotToken, settings.Telegram.ChannelUsername, log),
		m,
		log,
	)

	log.Info("Starting run", "symbol", settings.Symbol, "timeframe", settings.Timeframe, "mode", mode, "source", settings.Source)

	if _, err := engine.Run(ctx); err != nil {
		log.Error("Run failed", "error", err)
		return err
	}

	if settings.PushgatewayUrl != "" {
		if err := m.Push(ctx, settings.PushgatewayUrl); err != nil {
			log.Warn("Failed to push metrics", "error", err)
		}
	}

	return nil
}

// candleSource picks the market data source for the run and, when Redis is
// configured, wraps it in the candle cache.
func candleSource(settings *config.Settings, client *binance.Client, log *slog.Logger) (types.CandleSource, func(), error) {
	var source types.CandleSource

	switch settings.Source {
	case config.SourceOanda:
		if _, err := oanda.GranularityFor(settings.Timeframe); err != nil {
			return nil, nil, err
		}
		if settings.Oanda.AccountId == "" || settings.Oanda.ApiKey == "" {
			return nil, nil, fmt.Errorf("%w: oanda source needs OANDA_ACCOUNT_ID and OANDA_API_KEY", config.ErrInvalid)
		}
		source = oanda.NewOandaService(settings.Oanda.AccountId, settings.Oanda.ApiKey, "")
	default:
		if _, err := binance.Interval(settings.Timeframe); err != nil {
			return nil, nil, err
		}
		source = client
	}

	if settings.Redis.Addr == "" {
		return source, func() {}, nil
	}

	rdb := marketcache.NewClient(settings.Redis.Addr)
	log.Info("Caching candles in redis", "addr", settings.Redis.Addr, "ttl", settings.Redis.TTL)
	return marketcache.New(source, rdb, settings.Redis.TTL, log), func() { _ = rdb.Close() }, nil
}
