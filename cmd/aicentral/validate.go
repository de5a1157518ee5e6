package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"aicentral-hq/gateway/pkg/cli"
	"aicentral-hq/gateway/pkg/config"
	"aicentral-hq/gateway/pkg/pipelinefactory"
	"aicentral-hq/gateway/pkg/telemetry"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file, build every endpoint, selector, auth provider
and pipeline it defines, and print a summary. No network calls are made.

Every problem found is reported with its location in the file, for example
"pipelines[1].endpoint_selector".

Examples:
  # Validate the default config
  aicentral validate

  # Validate a specific file and print JSON
  aicentral validate --config gateway.yaml --format json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

// validationSummary describes what a valid configuration builds.
type validationSummary struct {
	Config    string            `json:"config"`
	Endpoints []endpointSummary `json:"endpoints"`
	Pipelines []pipelineSummary `json:"pipelines"`
}

type endpointSummary struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type pipelineSummary struct {
	Name     string   `json:"name"`
	Host     string   `json:"host"`
	Steps    []string `json:"steps"`
	Selector string   `json:"endpoint_selector"`
}

func (s validationSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ %s is valid\n", s.Config)

	fmt.Fprintf(&b, "\nEndpoints (%d):\n", len(s.Endpoints))
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, e := range s.Endpoints {
		fmt.Fprintf(tw, "  %s\t%s\n", e.Name, e.Kind)
	}
	tw.Flush()

	fmt.Fprintf(&b, "\nPipelines (%d):\n", len(s.Pipelines))
	tw = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, p := range s.Pipelines {
		fmt.Fprintf(tw, "  %s\t%s\t%s -> %s\n", p.Name, p.Host, strings.Join(p.Steps, " -> "), p.Selector)
	}
	tw.Flush()

	return strings.TrimRight(b.String(), "\n")
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.format)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}

	result, err := pipelinefactory.Build(cfg, pipelinefactory.Options{Sink: telemetry.NopSink{}})
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), summarize(cfgFile, result))
}

func summarize(path string, result *pipelinefactory.Result) validationSummary {
	summary := validationSummary{Config: path}

	for name, d := range result.Endpoints {
		summary.Endpoints = append(summary.Endpoints, endpointSummary{Name: name, Kind: d.Kind()})
	}
	sort.Slice(summary.Endpoints, func(i, j int) bool {
		return summary.Endpoints[i].Name < summary.Endpoints[j].Name
	})

	for _, p := range result.Router.Pipelines() {
		summary.Pipelines = append(summary.Pipelines, pipelineSummary{
			Name:     p.Name(),
			Host:     p.Host(),
			Steps:    p.StepNames(),
			Selector: p.Selector().Name(),
		})
	}
	return summary
}
