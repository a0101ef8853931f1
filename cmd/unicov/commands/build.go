package commands

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/graphbio/unicov/pkg/config"
	"github.com/graphbio/unicov/pkg/graph"
	"github.com/graphbio/unicov/pkg/observability"
	"github.com/graphbio/unicov/pkg/safeconv"
	"github.com/graphbio/unicov/pkg/version"
)

const (
	percentScale          = 100
	metricsReadHeaderWait = 5 * time.Second
	shutdownWait          = 5 * time.Second
)

// BuildCommand holds configuration for the build command.
type BuildCommand struct {
	configPath   string
	windowSize   int
	snapshotPath string
	noSplit      bool
	noColor      bool
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	bc := &BuildCommand{}

	cmd := &cobra.Command{
		Use:   "build [file...]",
		Short: "Build a coverage-tracked unitig index from sequences",
		Long: "Build folds newline-delimited raw sequences into a unitig index, " +
			"covering re-observed window runs and splitting unitigs at coverage " +
			"boundaries. Reads from stdin when no files are given.",
		RunE: bc.run,
	}

	cmd.Flags().StringVarP(&bc.configPath, "config", "c", "", "Config file path (default: ./unicov.yaml)")
	cmd.Flags().IntVarP(&bc.windowSize, "window-size", "k", 0, "Window size (overrides config)")
	cmd.Flags().StringVar(&bc.snapshotPath, "snapshot", "", "Write compressed coverage snapshots to this file")
	cmd.Flags().BoolVar(&bc.noSplit, "no-split", false, "Skip the final split pass over partially covered unitigs")
	cmd.Flags().BoolVar(&bc.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func (bc *BuildCommand) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadConfig(bc.configPath)
	if err != nil {
		return err
	}

	bc.applyOverrides(cfg)

	providers, err := observability.Init(observability.Config{
		ServiceName:    "unicov",
		ServiceVersion: version.Version,
		Mode:           observability.ModeCLI,
		LogLevel:       parseLogLevel(cfg.Logging.Level),
		LogJSON:        cfg.Logging.Format == "json",
	})
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()

		_ = providers.Shutdown(shutdownCtx)
	}()

	if cfg.Metrics.Enabled {
		stopMetrics := serveMetrics(cfg.Metrics.Listen, providers)
		defer stopMetrics()
	}

	metrics, err := observability.NewBuildMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create build metrics: %w", err)
	}

	builder, err := graph.NewBuilder(cfg.Build.WindowSize,
		graph.WithLogger(providers.Logger),
		graph.WithMetrics(metrics),
		graph.WithAbundanceThreshold(cfg.Build.AbundanceThreshold),
	)
	if err != nil {
		return err
	}

	err = foldInputs(ctx, builder, providers.Logger, args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	if cfg.Build.SplitUnconfirmed && !bc.noSplit {
		builder.SplitUnconfirmed(ctx)
	}

	if bc.snapshotPath != "" {
		snapErr := writeSnapshots(bc.snapshotPath, builder)
		if snapErr != nil {
			return snapErr
		}
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	if !quiet {
		bc.renderSummary(cmd.OutOrStdout(), builder.Stats())
	}

	return nil
}

func (bc *BuildCommand) applyOverrides(cfg *config.Config) {
	if bc.windowSize > 0 {
		cfg.Build.WindowSize = bc.windowSize
	}
}

// foldInputs streams every input source through the builder. Sequences
// shorter than one window are skipped with a warning rather than aborting
// the build.
func foldInputs(
	ctx context.Context,
	builder *graph.Builder,
	logger *slog.Logger,
	paths []string,
	stdin io.Reader,
) error {
	if len(paths) == 0 {
		return foldReader(ctx, builder, logger, "stdin", stdin)
	}

	for _, path := range paths {
		file, openErr := os.Open(path)
		if openErr != nil {
			return fmt.Errorf("open input %s: %w", path, openErr)
		}

		foldErr := foldReader(ctx, builder, logger, path, file)

		file.Close()

		if foldErr != nil {
			return foldErr
		}
	}

	return nil
}

func foldReader(
	ctx context.Context,
	builder *graph.Builder,
	logger *slog.Logger,
	source string,
	r io.Reader,
) error {
	sequences, err := ReadSequences(r)
	if err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}

	for i, seq := range sequences {
		addErr := builder.AddSequence(ctx, seq)
		if addErr != nil {
			if errors.Is(addErr, graph.ErrSequenceTooShort) {
				logger.WarnContext(ctx, "skipping short sequence",
					"source", source, "index", i, "length", len(seq))

				continue
			}

			return fmt.Errorf("fold %s: %w", source, addErr)
		}
	}

	logger.InfoContext(ctx, "input folded", "source", source, "sequences", len(sequences))

	return nil
}

// writeSnapshots writes every unitig store snapshot to one file, each
// record framed by a little-endian uint32 byte length.
func writeSnapshots(path string, builder *graph.Builder) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer file.Close()

	var frame [4]byte

	for i, u := range builder.Unitigs() {
		snap, snapErr := u.Coverage().Snapshot()
		if snapErr != nil {
			return fmt.Errorf("snapshot unitig %d: %w", i, snapErr)
		}

		binary.LittleEndian.PutUint32(frame[:], safeconv.MustIntToUint32(len(snap)))

		_, writeErr := file.Write(frame[:])
		if writeErr == nil {
			_, writeErr = file.Write(snap)
		}

		if writeErr != nil {
			return fmt.Errorf("write snapshot %d: %w", i, writeErr)
		}
	}

	return nil
}

func (bc *BuildCommand) renderSummary(w io.Writer, st graph.Stats) {
	if bc.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false

	tbl.AppendRow(table.Row{"Unitigs", humanize.Comma(int64(st.Unitigs))})
	tbl.AppendRow(table.Row{"Windows", humanize.Comma(int64(st.Windows))})
	tbl.AppendRow(table.Row{"Saturated", saturationCell(st)})
	tbl.AppendRow(table.Row{"Inline stores", humanize.Comma(int64(st.Inline))})
	tbl.AppendRow(table.Row{"Heap stores", humanize.Comma(int64(st.Heap))})
	tbl.AppendRow(table.Row{"Heap memory", humanize.IBytes(uint64(st.HeapBytes))})

	fmt.Fprintln(w, tbl.Render())
}

func saturationCell(st graph.Stats) string {
	if st.Unitigs == 0 {
		return "0"
	}

	percent := st.Saturated * percentScale / st.Unitigs

	cell := fmt.Sprintf("%s (%d%%)", humanize.Comma(int64(st.Saturated)), percent)

	switch {
	case st.Saturated == st.Unitigs:
		return color.New(color.FgGreen).Sprint(cell)
	case st.Saturated > 0:
		return color.New(color.FgYellow).Sprint(cell)
	default:
		return color.New(color.FgRed).Sprint(cell)
	}
}

func serveMetrics(listen string, providers observability.Providers) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(providers.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderWait,
	}

	go func() {
		serveErr := srv.ListenAndServe()
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			providers.Logger.Error("metrics server failed", "listen", listen, "error", serveErr)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
