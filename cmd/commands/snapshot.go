package commands

// Command to take a holder snapshot of one token
// Loads config, fetches transfers, derives balances and writes the CSV
// Optionally renders a chart and sends the report to Telegram
// Cancels in-flight requests on SIGINT/SIGTERM

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"token-holders/internal/clients_api/bitquery"
	"token-holders/internal/clients_api/tokenapi"
	"token-holders/internal/features/holders"
	"token-holders/internal/features/tg_charts"
	"token-holders/internal/features/tg_report"
	"token-holders/internal/infra/config"
	"token-holders/internal/infra/httpclient"
	"token-holders/internal/infra/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [token-address]",
	Short: "Build the holder list of a token and write it to CSV",
	Long: `Fetch the transfer history of an ERC-20 token, derive holder balances either
by replaying transfers (ledger) or by querying live balances (live), and write
Address,Balance rows to the output CSV.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSnapshot,
}

func init() {
	config.RegisterFlags(snapshotCmd.Flags())
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(config.LoadOptions{ConfigFile: configFile, Flags: cmd.Flags()})
	if err != nil {
		return err
	}
	if err := log.Init(cfg.Log.Dir, cfg.Log.Level); err != nil {
		return err
	}

	token := cfg.Token.Address
	if len(args) == 1 {
		token = args[0]
	}
	if token == "" {
		return errors.New("token address is required (argument, --token or TOKEN_ADDRESS)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	snap, err := newSnapshot(cfg)
	if err != nil {
		return err
	}

	res, err := snap.Run(ctx, token)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.LogWarn("Snapshot interrupted, no output written")
		}
		return err
	}

	rows, err := holders.ExportCSV(cfg.Output.Path, res.Holders)
	if err != nil {
		return err
	}
	log.LogSuccess("Holders written",
		zap.String("path", cfg.Output.Path),
		zap.Int("rows", rows),
		zap.Int64("duration_ms", res.Duration.Milliseconds()))

	chartPath := cfg.Output.ChartPath
	if chartPath != "" {
		if err := tg_charts.GenerateHoldersChart(chartPath, res.Token, res.Holders, cfg.Output.ChartTop); err != nil {
			log.LogWarn("Failed to generate holders chart", zap.Error(err))
			chartPath = ""
		}
	}

	if cfg.Telegram.Enabled() {
		sendReport(cfg, res, chartPath)
	}
	return nil
}

// newSnapshot wires the configured source and, in live mode, the enricher.
func newSnapshot(cfg *config.Config) (*holders.Snapshot, error) {
	snap := &holders.Snapshot{
		Mode:     holders.Mode(cfg.Source.Mode),
		Decimals: int32(cfg.Token.Decimals),
	}

	var bq *bitquery.Client
	if cfg.GraphQL.APIKey != "" {
		bq = bitquery.NewClient(cfg.GraphQL.Endpoint, cfg.GraphQL.APIKey, cfg.GraphQL.Network, httpOptions(cfg, "bitquery"))
	}

	switch cfg.Source.Kind {
	case config.SourceREST:
		client := tokenapi.NewClient(cfg.REST.BaseURL, httpOptions(cfg, "tokenapi"))
		snap.Source = holders.NewPaginatedSource(client, cfg.REST.PageSize, cfg.REST.PageDelay, cfg.REST.MaxPages)
	case config.SourceGraphQL:
		if bq == nil {
			return nil, config.ErrMissingCredential
		}
		snap.Source = holders.NewBulkSource(bq, cfg.GraphQL.TransferLimit)
	default:
		return nil, config.ErrInvalidConfig
	}

	if snap.Mode == holders.ModeLive {
		if bq == nil {
			return nil, config.ErrMissingCredential
		}
		snap.Enricher = holders.NewEnricher(newBalanceClient(cfg), holders.EnricherConfig{
			BatchSize:   cfg.Enrich.BatchSize,
			MaxAttempts: cfg.Enrich.MaxAttempts,
			BaseDelay:   cfg.Enrich.BaseDelay,
		})
	}
	return snap, nil
}

// newBalanceClient builds the Bitquery client used for per-address lookups.
// It has no circuit breaker: the enricher retries each address on its own,
// and an open breaker would fail every retry for the whole breaker timeout.
func newBalanceClient(cfg *config.Config) *bitquery.Client {
	opts := httpOptions(cfg, "bitquery-balance")
	opts.BreakerFailures = 0
	return bitquery.NewClient(cfg.GraphQL.Endpoint, cfg.GraphQL.APIKey, cfg.GraphQL.Network, opts)
}

func httpOptions(cfg *config.Config, name string) httpclient.Options {
	opts := httpclient.DefaultOptions(name)
	opts.Timeout = cfg.HTTP.Timeout
	opts.RateLimit = cfg.HTTP.RateLimit
	opts.RateBurst = cfg.HTTP.RateBurst
	if cfg.HTTP.MaxResponseSize > 0 {
		opts.MaxResponseSize = cfg.HTTP.MaxResponseSize
	}
	return opts
}

// sendReport never fails the run: the CSV is already on disk.
func sendReport(cfg *config.Config, res *holders.Result, chartPath string) {
	reporter, err := tg_report.NewReporter(cfg.Telegram.BotToken, cfg.Telegram.ChatID, "",
		&http.Client{Timeout: cfg.HTTP.Timeout + 30*time.Second})
	if err != nil {
		log.LogWarn("Telegram report skipped", zap.Error(err))
		return
	}
	if err := reporter.SendSnapshot(res, cfg.Output.Path, chartPath); err != nil {
		log.LogWarn("Telegram report incomplete", zap.Error(err))
	}
}
