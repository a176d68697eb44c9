// Command solenoid-endurance repeatedly actuates a solenoid, verifies each
// actuation with an endstop sensor and logs a PASS/FAIL record per cycle.
package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sweeney/solenoid-endurance/internal/config"
	"github.com/sweeney/solenoid-endurance/internal/cycle"
	"github.com/sweeney/solenoid-endurance/internal/edge"
	"github.com/sweeney/solenoid-endurance/internal/status"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// options holds the command-line flags. Flags only override the config file
// when given explicitly.
type options struct {
	configPath string
	verbose    bool
	simulate   bool
	threshold  int
	logFile    string
	console    bool
	sqlite     string
	serialPort string
	maxCycles  uint64
	seed       uint64

	log *zap.SugaredLogger
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "solenoid-endurance",
		Short: "Solenoid endurance test controller",
		Long: `Runs solenoid test cycles until interrupted: pull, hold for a random
time, release, and check the endstop saw both movements within their
detection windows. Every cycle is logged as PASS or FAIL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(opts.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cfg, opts.log, cmd.OutOrStdout())
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "solenoid-endurance.yaml", "config file (missing file uses defaults)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging, including every phase transition")
	f.BoolVar(&opts.simulate, "simulate", false, "run against a simulated rig instead of GPIO")
	f.IntVar(&opts.threshold, "threshold", 1, "edges required to confirm a movement")
	f.StringVar(&opts.logFile, "log-file", "", "result log file (empty string disables)")
	f.BoolVar(&opts.console, "console", true, "print results to stdout")
	f.StringVar(&opts.sqlite, "sqlite", "", "also record results in this SQLite database")
	f.StringVar(&opts.serialPort, "serial", "", "also mirror results to this serial port")
	f.Uint64Var(&opts.maxCycles, "max-cycles", 0, "stop after this many cycles (0 = unlimited)")
	f.Uint64Var(&opts.seed, "seed", 0, "simulation random seed (0 = from clock)")

	cmd.AddCommand(newEndstopCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))

	return cmd
}

func newEndstopCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "endstop",
		Short: "Print the current endstop state and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			hw, err := openHardware(cfg, &edge.Counter{}, opts.log)
			if err != nil {
				return err
			}
			defer hw.Close()
			return printEndstop(hw.endstop, cmd.OutOrStdout())
		},
	}
}

func newCheckCommand(opts *options) *cobra.Command {
	var write string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print it as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(data); err != nil {
				return err
			}
			if write != "" {
				if err := cfg.Save(write); err != nil {
					return err
				}
				opts.log.Infof("wrote effective config to %s", write)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&write, "write", "", "also save the effective config to this path")
	return cmd
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// loadConfig reads the config file, applies explicitly given flags and
// validates the result.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Log.Verbose = opts.verbose
	}
	if flags.Changed("simulate") {
		cfg.Simulate.Enabled = opts.simulate
	}
	if flags.Changed("threshold") {
		cfg.Cycle.DetectionThreshold = opts.threshold
	}
	if flags.Changed("log-file") {
		cfg.Log.File = opts.logFile
	}
	if flags.Changed("console") {
		cfg.Log.Console = opts.console
	}
	if flags.Changed("sqlite") {
		cfg.Log.SQLite = opts.sqlite
	}
	if flags.Changed("serial") {
		cfg.Log.SerialPort = opts.serialPort
	}
	if flags.Changed("max-cycles") {
		cfg.Cycle.MaxCycles = opts.maxCycles
	}
	if flags.Changed("seed") {
		cfg.Simulate.Seed = opts.seed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Log.Verbose && !opts.verbose {
		// Config file asked for debug logging; rebuild the logger.
		log, err := newLogger(true)
		if err != nil {
			opts.log.Warnf("keeping info logging, debug logger failed: %v", err)
		} else {
			_ = opts.log.Sync()
			opts.log = log
		}
	}
	return cfg, nil
}

func run(cfg *config.Config, log *zap.SugaredLogger, stdout io.Writer) error {
	sessionID := uuid.NewString()

	sink, err := openSinks(cfg.Log, stdout, log)
	if err != nil {
		return fmt.Errorf("open result log: %w", err)
	}
	defer sink.Close()

	counter := &edge.Counter{}
	hw, err := openHardware(cfg, counter, log)
	if err != nil {
		return err
	}
	defer hw.Close()

	tracker := status.NewTracker(sessionID, time.Now(), statusConfig(cfg), time.Now)

	ctrlOpts := []cycle.Option{
		cycle.WithLogger(log),
		cycle.WithObserver(heartbeat(tracker, sink, cfg.Log.Heartbeat, log)),
	}
	if cfg.Simulate.Enabled && cfg.Simulate.Seed != 0 {
		ctrlOpts = append(ctrlOpts, cycle.WithRand(rand.New(rand.NewPCG(cfg.Simulate.Seed, cfg.Simulate.Seed+1))))
	}
	ctrl := cycle.New(cfg.Cycle, hw.driver, counter, sink, ctrlOpts...)

	if err := ctrl.Start(status.FormatStartMarker(tracker.Snapshot())); err != nil {
		return err
	}
	log.Infof("started: session=%s threshold=%d pull=%v max_on=%v interval=%v-%v simulate=%v",
		sessionID, cfg.Cycle.DetectionThreshold, cfg.Cycle.PullDuration, cfg.Cycle.MaxOnDuration,
		cfg.Cycle.MinInterval, cfg.Cycle.MaxInterval, cfg.Simulate.Enabled)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	reason, runErr := runLoop(ctrl, sigCh, log)

	snap := tracker.Snapshot()
	if err := ctrl.Stop(status.FormatEndMarker(snap, reason)); err != nil {
		log.Warnf("failed to log end of test: %v", err)
	}
	log.Infof("stopped: reason=%s cycles=%d pass=%d fail=%d", reason, snap.Stats.Total, snap.Stats.Pass, snap.Stats.Fail)
	return runErr
}
