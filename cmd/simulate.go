package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/playout/internal/config"
	"github.com/smazurov/playout/internal/events"
	"github.com/smazurov/playout/internal/session"
)

// CreateSimulateCmd creates the simulate command.
func CreateSimulateCmd() *cobra.Command {
	var (
		duration    time.Duration
		target      int
		sessionID   string
		formatName  string
		width       int
		height      int
		fps         float64
		progressive bool
		rateScale   float64
	)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the configured sessions against simulated devices",
		Long: `Run every [[sessions]] entry from the configuration file against a
simulated capture device for a fixed duration and print per-session pacing
results. When the file defines no sessions, one session is built from flags.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			f, err := loadSimulationFile(path)
			if err != nil {
				return err
			}
			if len(f.Sessions) == 0 {
				f.Sessions = []config.SessionConfig{{
					ID:          sessionID,
					Format:      formatName,
					Width:       width,
					Height:      height,
					FPS:         fps,
					Progressive: progressive,
					RateScale:   rateScale,
				}}
			}
			if cmd.Flags().Changed("target") {
				f.Pacing.TargetQueueLength = target
			}
			if err := f.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSimulation(ctx, f, duration, cmd.OutOrStdout())
		},
	}

	simulateCmd.Flags().DurationVarP(&duration, "duration", "d", 5*time.Second, "How long to run")
	simulateCmd.Flags().IntVarP(&target, "target", "t", 3, "Target queue length")
	simulateCmd.Flags().StringVar(&sessionID, "id", "sim0", "Session ID when no sessions are configured")
	simulateCmd.Flags().StringVarP(&formatName, "format", "f", "yuv8", "Pixel format when no sessions are configured")
	simulateCmd.Flags().IntVar(&width, "width", 1920, "Frame width when no sessions are configured")
	simulateCmd.Flags().IntVar(&height, "height", 1080, "Frame height when no sessions are configured")
	simulateCmd.Flags().Float64Var(&fps, "fps", 29.97, "Frame rate when no sessions are configured")
	simulateCmd.Flags().BoolVar(&progressive, "progressive", false, "Progressive scan when no sessions are configured")
	simulateCmd.Flags().Float64Var(&rateScale, "rate-scale", 1.0, "Device cadence scale when no sessions are configured")

	return simulateCmd
}

func loadSimulationFile(path string) (config.File, error) {
	if path == "" {
		return config.File{Pacing: config.DefaultPacing()}, nil
	}
	f, err := config.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.File{Pacing: config.DefaultPacing()}, nil
	}
	return f, err
}

func runSimulation(ctx context.Context, f config.File, duration time.Duration, out io.Writer) error {
	p, err := NewPipeline(f, events.New())
	if err != nil {
		return err
	}
	if err := p.Start(ctx); err != nil {
		p.Stop()
		return err
	}

	select {
	case <-ctx.Done():
	case <-time.After(duration):
	}

	// Snapshot before Stop closes the sessions
	stats := p.Registry.Stats()
	runErr := p.Stop()

	printSummary(out, stats, p)
	return runErr
}

func printSummary(out io.Writer, stats []session.Stats, p *Pipeline) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tFORMAT\tSTATE\tQUEUE\tPASS0\tPASS1\tPASS2\tPACER DROPS\tDEVICE DROPS")
	for _, st := range stats {
		counts, _ := p.PassCounts(st.ID)
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%d\t%d\t%d\t%d\n",
			st.ID, st.Format, st.State, st.QueueDepth, st.TargetQueueLength,
			counts[0], counts[1], counts[2],
			st.Drops.PacerWarnings, st.Drops.DeviceDrops)
	}
	w.Flush()
}
