package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"

	"github.com/graphbio/unicov/pkg/config"
	"github.com/graphbio/unicov/pkg/coverage"
	"github.com/graphbio/unicov/pkg/graph"
)

const (
	// maxPlotUnitigs caps the chart width; beyond it the bars stop being
	// readable anyway.
	maxPlotUnitigs = 500

	plotDataZoomEnd = 100
	plotLabelSize   = 10

	coveredColor   = "#5cb85c"
	uncoveredColor = "#d9534f"
)

// PlotCommand holds configuration for the plot command.
type PlotCommand struct {
	configPath string
	windowSize int
	output     string
}

// NewPlotCommand creates the plot command.
func NewPlotCommand() *cobra.Command {
	pc := &PlotCommand{}

	cmd := &cobra.Command{
		Use:   "plot [file...]",
		Short: "Render per-unitig coverage as an HTML bar chart",
		Long: "Plot builds an index from the given sequences and renders covered " +
			"versus uncovered window counts per unitig. Reads from stdin when no " +
			"files are given.",
		RunE: pc.run,
	}

	cmd.Flags().StringVarP(&pc.configPath, "config", "c", "", "Config file path (default: ./unicov.yaml)")
	cmd.Flags().IntVarP(&pc.windowSize, "window-size", "k", 0, "Window size (overrides config)")
	cmd.Flags().StringVarP(&pc.output, "output", "o", "coverage.html", "Output HTML path")

	return cmd
}

func (pc *PlotCommand) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadConfig(pc.configPath)
	if err != nil {
		return err
	}

	if pc.windowSize > 0 {
		cfg.Build.WindowSize = pc.windowSize
	}

	builder, err := graph.NewBuilder(cfg.Build.WindowSize,
		graph.WithAbundanceThreshold(cfg.Build.AbundanceThreshold),
	)
	if err != nil {
		return err
	}

	err = foldInputs(ctx, builder, slogDiscard(), args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	file, err := os.Create(pc.output)
	if err != nil {
		return fmt.Errorf("create output %s: %w", pc.output, err)
	}
	defer file.Close()

	renderErr := RenderCoverageChart(file, builder)
	if renderErr != nil {
		return renderErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", pc.output)

	return nil
}

// RenderCoverageChart writes an HTML bar chart of covered and uncovered
// window counts per unitig.
func RenderCoverageChart(w io.Writer, builder *graph.Builder) error {
	unitigs := builder.Unitigs()
	if len(unitigs) > maxPlotUnitigs {
		unitigs = unitigs[:maxPlotUnitigs]
	}

	labels := make([]string, len(unitigs))
	covered := make([]opts.BarData, len(unitigs))
	uncovered := make([]opts.BarData, len(unitigs))

	for i, u := range unitigs {
		labels[i] = fmt.Sprintf("u%d", i)

		c := coveredWindows(u.Coverage())
		covered[i] = opts.BarData{Value: c}
		uncovered[i] = opts.BarData{Value: u.Windows() - c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Unitig coverage", Subtitle: "covered vs uncovered windows"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{Rotate: 45, Interval: "0", FontSize: plotLabelSize},
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "windows"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "0"}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "slider", Start: 0, End: plotDataZoomEnd},
			opts.DataZoom{Type: "inside"},
		),
	)

	bar.SetXAxis(labels)
	bar.AddSeries("covered", covered, charts.WithItemStyleOpts(opts.ItemStyle{Color: coveredColor}))
	bar.AddSeries("uncovered", uncovered, charts.WithItemStyleOpts(opts.ItemStyle{Color: uncoveredColor}))
	bar.SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "coverage"}))

	err := bar.Render(w)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}

func coveredWindows(store *coverage.Store) int {
	n := 0

	for i := range store.Size() {
		if store.CovAt(i) == coverage.Full {
			n++
		}
	}

	return n
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
