package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"geospider/internal/capabilities"
	"geospider/internal/config"
	"geospider/internal/csw"
	"geospider/internal/harvest"
	"geospider/internal/logging"
	"geospider/internal/output"
	"geospider/internal/serializer"
	"geospider/pkg/spider"
)

// harvestFlags are the flags shared by the services and layers commands.
// Each command registers its own copy so flag state never leaks between
// commands in tests.
type harvestFlags struct {
	catalogURL    string
	owner         string
	protocols     string
	number        int
	identifier    string
	concurrency   int
	timeout       time.Duration
	retryAttempts int
	noFilter      bool

	pretty          bool
	yamlOut         bool
	keys            string
	noTimestamp     bool
	azureAccountURL string
}

func (f *harvestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.catalogURL, "catalog", "", "CSW catalog endpoint (default: Nationaal Georegister)")
	cmd.Flags().StringVar(&f.owner, "owner", "", "Organisation name to query services for")
	cmd.Flags().StringVarP(&f.protocols, "protocols", "p", "", "Comma-separated protocol filter (e.g. 'OGC:WMS,OGC:WFS')")
	cmd.Flags().IntVarP(&f.number, "number", "n", 0, "Maximum number of records to harvest per protocol (0 = all)")
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "c", 0, "Number of concurrent capability fetches")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Per-request timeout for capability fetches")
	cmd.Flags().IntVar(&f.retryAttempts, "retry-attempts", 0, "Retry budget per capability fetch")
	cmd.Flags().BoolVar(&f.noFilter, "no-filter", false, "Keep duplicate catalog records sharing a service URL")

	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "Pretty-print JSON output")
	cmd.Flags().BoolVar(&f.yamlOut, "yaml", false, "Write YAML instead of JSON")
	cmd.Flags().StringVar(&f.keys, "keys", "snake", "Output key style: snake or camel")
	cmd.Flags().BoolVar(&f.noTimestamp, "no-timestamp", false, "Omit the 'updated' timestamp from the output")
	cmd.Flags().StringVar(&f.azureAccountURL, "azure-account-url", "",
		"Storage account URL for azure:// destinations (default: AZURE_STORAGE_ACCOUNT_URL)")
}

// buildConfig assembles the harvest configuration: flags win over the
// project config file, which wins over built-in defaults. A .env file in the
// working directory is loaded first so Azure credentials can live there.
func (f *harvestFlags) buildConfig(cmd *cobra.Command) (*spider.HarvestConfig, error) {
	_ = godotenv.Load()

	protocols, err := spider.ParseProtocols(f.protocols)
	if err != nil {
		return nil, err
	}

	cfg := &spider.HarvestConfig{
		CatalogURL:    f.catalogURL,
		Owner:         f.owner,
		Protocols:     protocols,
		Limit:         f.number,
		Identifier:    f.identifier,
		Workers:       f.concurrency,
		FetchTimeout:  f.timeout,
		RetryAttempts: f.retryAttempts,
		NoFilter:      f.noFilter,
		Verbose:       getVerboseFlag(cmd),
	}

	projectCfg, err := config.Load(".")
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("loading %s: %v: %w", config.ConfigFileName, err, spider.ErrInvalidConfig)
	}
	if projectCfg != nil {
		if err := projectCfg.ApplyTo(cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serializerOptions maps the output flags onto serializer options.
func (f *harvestFlags) serializerOptions() (serializer.Options, error) {
	keys, err := spider.ParseKeyStyle(f.keys)
	if err != nil {
		return serializer.Options{}, err
	}
	format := serializer.FormatJSON
	if f.yamlOut {
		format = serializer.FormatYAML
	}
	return serializer.Options{
		Format:    format,
		Pretty:    f.pretty,
		Keys:      keys,
		Timestamp: !f.noTimestamp,
	}, nil
}

func errInvalidFlag(name, value, valid string) error {
	return fmt.Errorf("invalid --%s value %q (valid: %s): %w", name, value, valid, spider.ErrInvalidConfig)
}

// newLogger creates the run logger honoring the verbose flag.
func newLogger(cfg *spider.HarvestConfig) spider.Logger {
	return logging.NewConsoleLogger(cfg.Verbose)
}

// newWriter creates the output writer, honoring an explicit account URL.
func (f *harvestFlags) newWriter(logger spider.Logger) *output.Writer {
	var opts []output.WriterOption
	if f.azureAccountURL != "" {
		opts = append(opts, output.WithAccountURL(f.azureAccountURL))
	}
	return output.NewWriter(logger, opts...)
}

// harvestServices runs the full catalog-to-services pipeline and reports
// the run summary. Per-record failures are reported but never returned as an
// error; a failed catalog query is.
func harvestServices(ctx context.Context, cfg *spider.HarvestConfig, logger spider.Logger) ([]spider.Service, *csw.Client, error) {
	client := csw.NewClient(cfg.CatalogURL, logger)
	records, err := client.ServiceRecords(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("harvesting capabilities for %d services", len(records))

	fetcher := capabilities.NewFetcher(cfg, logger)
	runner := harvest.NewRunner(fetcher, cfg.Workers, logger)
	services, failures := runner.Run(ctx, records)

	summary := harvest.Summarize(services, failures)
	summary.Report(logger, failures)
	return services, client, nil
}
