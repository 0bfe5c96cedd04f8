package cli

import (
	"github.com/spf13/cobra"

	"geospider/internal/aggregate"
	"geospider/internal/serializer"
	"geospider/pkg/spider"
)

func newServicesCmd() *cobra.Command {
	flags := &harvestFlags{}
	var (
		datasetMD bool
		ungrouped string
	)

	cmd := &cobra.Command{
		Use:   "services <output-file>",
		Short: "Harvest service metadata",
		Long: `Harvest the capability metadata of every service registered in the
catalog for the configured owner and write one record per service.

With --dataset-md the services are grouped under the dataset they operate
on, with dataset titles resolved through the catalog.

Examples:
  # All services, pretty JSON to stdout
  geospider services - --pretty

  # Only WMS and WMTS, grouped by dataset, to a file
  geospider services services.json -p "OGC:WMS,OGC:WMTS" --dataset-md

  # Upload to Azure Blob Storage (credentials from .env)
  geospider services azure://inventory/services.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServices(cmd, args[0], flags, datasetMD, ungrouped)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&datasetMD, "dataset-md", false, "Group services by the dataset they operate on")
	cmd.Flags().StringVar(&ungrouped, "ungrouped", string(spider.UngroupedDrop),
		"What to do with services without a dataset id when grouping: drop or bucket")
	return cmd
}

func init() {
	rootCmd.AddCommand(newServicesCmd())
}

func runServices(cmd *cobra.Command, destination string, flags *harvestFlags, datasetMD bool, ungrouped string) error {
	opts, err := flags.serializerOptions()
	if err != nil {
		return err
	}
	policy, err := parseUngroupedPolicy(ungrouped)
	if err != nil {
		return err
	}
	cfg, err := flags.buildConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := newLogger(cfg)

	services, client, err := harvestServices(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var payload any
	if datasetMD {
		datasets, err := aggregate.Datasets(ctx, services, client, cfg.Workers, policy)
		if err != nil {
			return err
		}
		payload = map[string]any{"datasets": datasets}
	} else {
		payload = map[string]any{"services": aggregate.Services(services)}
	}

	data, err := serializer.Marshal(payload, opts)
	if err != nil {
		return err
	}
	return flags.newWriter(logger).Write(ctx, destination, data, opts.Format.ContentType())
}

func parseUngroupedPolicy(value string) (spider.UngroupedPolicy, error) {
	switch spider.UngroupedPolicy(value) {
	case spider.UngroupedDrop, spider.UngroupedBucket:
		return spider.UngroupedPolicy(value), nil
	default:
		return "", errInvalidFlag("ungrouped", value, "drop, bucket")
	}
}
