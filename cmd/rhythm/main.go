package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cbegin/rhythmbar-go"
	"github.com/cbegin/rhythmbar-go/internal/config"
)

var (
	configPath string
	logLevel   string
	bpm        float64
	noNoise    bool
	outPath    string

	rootCmd = &cobra.Command{
		Use:           "rhythm",
		Short:         "Build a one-bar rhythm from cards and play it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	catalogCmd = &cobra.Command{
		Use:   "catalog",
		Short: "List the rhythm cards and their tick cost",
		Args:  cobra.NoArgs,
		RunE:  catalogRun,
	}
	playCmd = &cobra.Command{
		Use:   "play [card...]",
		Short: "Pack the cards into a bar and play it once",
		RunE:  playRun,
	}
	renderCmd = &cobra.Command{
		Use:   "render [card...]",
		Short: "Render the bar to a float32 WAV file",
		RunE:  renderRun,
	}
	exportCmd = &cobra.Command{
		Use:   "export [card...]",
		Short: "Write the bar as a standard MIDI file",
		RunE:  exportRun,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	rootCmd.PersistentFlags().Float64Var(&bpm, "bpm", 0, "tempo override")
	rootCmd.PersistentFlags().BoolVar(&noNoise, "no-noise", false, "drop the noise layer on notes")
	renderCmd.Flags().StringVarP(&outPath, "out", "o", "bar.wav", "output WAV path")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "bar.mid", "output MIDI path")
	rootCmd.AddCommand(catalogCmd, playCmd, renderCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if bpm > 0 {
		cfg.BPM = bpm
	}
	if noNoise {
		cfg.NoiseLayer = false
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, cfg.Validate()
}

func newLogger(level string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	log.SetLevel(lvl)
	return log, nil
}

// newSession builds a session and packs cards into its bar in order.
func newSession(cards []string, opts ...rhythmbar.SessionOption) (*rhythmbar.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	opts = append([]rhythmbar.SessionOption{rhythmbar.WithConfig(cfg), rhythmbar.WithLogger(log)}, opts...)
	s, err := rhythmbar.NewSession(opts...)
	if err != nil {
		return nil, err
	}
	for _, id := range cards {
		if _, err := s.Append(id); err != nil {
			return nil, errors.Wrapf(err, "card %q", id)
		}
	}
	return s, nil
}

func catalogRun(cmd *cobra.Command, args []string) error {
	s, err := newSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	out := cmd.OutOrStdout()
	for _, sym := range s.Catalog().Symbols() {
		cost, _ := s.Timeline().Cost(sym.ID)
		roles := make([]string, len(sym.SubEvents))
		for i, ev := range sym.SubEvents {
			role := "note"
			if ev.Rest {
				role = "rest"
			}
			roles[i] = fmt.Sprintf("%s %gb", role, ev.Beats)
		}
		fmt.Fprintf(out, "%-4s %2d ticks  %-22s %s\n", sym.ID, cost, sym.Name, strings.Join(roles, ", "))
	}
	return nil
}

func printBar(cmd *cobra.Command, s *rhythmbar.Session) {
	tl := s.Timeline()
	fmt.Fprintf(cmd.OutOrStdout(), "bar: %d / %d ticks used, remaining: %d\n", tl.UsedTicks(), tl.TotalTicks(), tl.RemainingTicks())
}

func playRun(cmd *cobra.Command, args []string) error {
	s, err := newSession(args)
	if err != nil {
		return err
	}
	defer s.Close()
	printBar(cmd, s)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	last := -1
	s.OnChange(func(snap rhythmbar.Snapshot) {
		if snap.Playing() && snap.Tick != last && snap.Tick < snap.TotalTicks {
			last = snap.Tick
			fmt.Fprintf(cmd.OutOrStdout(), "\r%s", cursor(snap))
		}
	})
	err = s.Play(ctx)
	fmt.Fprintln(cmd.OutOrStdout())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func cursor(snap rhythmbar.Snapshot) string {
	var b strings.Builder
	for i := 0; i < snap.TotalTicks; i++ {
		if i == snap.Tick {
			b.WriteByte('|')
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func renderRun(cmd *cobra.Command, args []string) error {
	s, err := newSession(args)
	if err != nil {
		return err
	}
	defer s.Close()
	f, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	defer f.Close()
	if err := s.RenderWAV(f); err != nil {
		return err
	}
	printBar(cmd, s)
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	s, err := newSession(args)
	if err != nil {
		return err
	}
	defer s.Close()
	f, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	defer f.Close()
	if err := s.ExportMIDI(f); err != nil {
		return err
	}
	printBar(cmd, s)
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
	return nil
}
