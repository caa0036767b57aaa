package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cognicore/shaper/pkg/shaper"
	"github.com/cognicore/shaper/pkg/shaper/config"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	driver     string
	dbPath     string
	logLevel   string
	memoSize   int
}

// app carries what PersistentPreRunE resolved.
type app struct {
	flags globalFlags
	cfg   config.Config
	log   *slog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "shaper",
		Short:         "shaper: shape-based text classifier",
		Long:          "Learns the run-length shape of labelled strings and labels new strings by the shape they share with the training data.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.resolve(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.flags.driver, "store", "", "Store driver: sqlite, bolt or memory")
	pf.StringVar(&a.flags.dbPath, "db", "", "Store path")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.IntVar(&a.flags.memoSize, "memo", -1, "Verdict memo size (0 disables)")

	root.AddCommand(
		newLearnCmd(a),
		newClassifyCmd(a),
		newExplainCmd(a),
		newStatsCmd(a),
		newResetCmd(a),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

// resolve loads the config file and applies flag overrides.
func (a *app) resolve(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.flags.configPath != "" {
		loaded, err := config.Load(a.flags.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.flags.driver != "" {
		cfg.Store.Driver = a.flags.driver
	}
	if a.flags.dbPath != "" {
		cfg.Store.Path = a.flags.dbPath
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	if a.flags.memoSize >= 0 {
		cfg.Cache.MemoSize = a.flags.memoSize
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := config.NewLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger
	return nil
}

// open opens the configured store and wraps it in a classifier.
func (a *app) open(cmd *cobra.Command) (*shaper.Shaper, error) {
	st, err := config.OpenStore(cmd.Context(), a.cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s, err := shaper.New(shaper.Options{
		Store:     st,
		Base:      a.cfg.Classifier.Base,
		MaxLevels: a.cfg.Classifier.MaxLevels,
		MemoSize:  a.cfg.Cache.MemoSize,
		Logger:    a.log,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	return s, nil
}
