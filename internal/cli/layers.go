package cli

import (
	"github.com/spf13/cobra"

	"geospider/internal/aggregate"
	"geospider/internal/layersort"
	"geospider/internal/serializer"
	"geospider/pkg/spider"
)

func newLayersCmd() *cobra.Command {
	flags := &harvestFlags{}
	var (
		mode      string
		sortRules string
		ungrouped string
	)

	cmd := &cobra.Command{
		Use:   "layers <output-file>",
		Short: "Harvest layer metadata",
		Long: `Harvest every layer (WMS layer, WFS feature type, WCS coverage, WMTS
layer, OGC API collection or tileset) exposed by the catalog's services.

Modes:
  flat      one record per unique layer, service fields inlined (default)
  services  layers nested under their service
  datasets  layers nested under services nested under datasets

In flat mode a JSON rules file can order the layers: each rule maps layer
name patterns on given protocols to a priority index; lower indices sort
first and unmatched layers sort last. The rules file is validated before
any catalog traffic.

Examples:
  # Flat layer inventory of the whole catalog
  geospider layers layers.json --pretty

  # Single service by catalog identifier
  geospider layers - -i 8e55b0b3-4a9a-4736-8ad7-e18fe9de2f42

  # Sorted base-map inventory
  geospider layers layers.json --sort-rules rules.json -p "OGC:WMTS"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayers(cmd, args[0], flags, mode, sortRules, ungrouped)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&mode, "mode", "m", string(spider.ModeFlat), "Output mode: flat, services or datasets")
	cmd.Flags().StringVarP(&flags.identifier, "id", "i", "", "Harvest a single catalog record by identifier")
	cmd.Flags().StringVar(&sortRules, "sort-rules", "", "JSON rules file ordering flat-mode layers")
	cmd.Flags().StringVar(&ungrouped, "ungrouped", string(spider.UngroupedDrop),
		"What to do with services without a dataset id in datasets mode: drop or bucket")
	return cmd
}

func init() {
	rootCmd.AddCommand(newLayersCmd())
}

func runLayers(cmd *cobra.Command, destination string, flags *harvestFlags, mode, sortRules, ungrouped string) error {
	layersMode, err := spider.ParseLayersMode(mode)
	if err != nil {
		return err
	}
	if sortRules != "" && layersMode != spider.ModeFlat {
		return errInvalidFlag("sort-rules", sortRules, "flat mode only")
	}
	policy, err := parseUngroupedPolicy(ungrouped)
	if err != nil {
		return err
	}
	opts, err := flags.serializerOptions()
	if err != nil {
		return err
	}

	// Rules are validated before the first catalog request so a broken file
	// fails fast instead of after minutes of harvesting.
	var rules *layersort.Rules
	if sortRules != "" {
		rules, err = layersort.LoadRules(sortRules)
		if err != nil {
			return err
		}
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
	switch layersMode {
	case spider.ModeFlat:
		layers := aggregate.FlattenLayers(services)
		if rules != nil {
			layers = rules.Sort(layers)
		}
		payload = map[string]any{"layers": layers}
	case spider.ModeServices:
		payload = map[string]any{"services": services}
	case spider.ModeDatasets:
		datasets, err := aggregate.Datasets(ctx, services, client, cfg.Workers, policy)
		if err != nil {
			return err
		}
		payload = map[string]any{"datasets": datasets}
	}

	data, err := serializer.Marshal(payload, opts)
	if err != nil {
		return err
	}
	return flags.newWriter(logger).Write(ctx, destination, data, opts.Format.ContentType())
}
