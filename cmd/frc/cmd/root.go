package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/frc/internal/jsruntime"
	"github.com/psantana5/frc/internal/logging"
	"github.com/psantana5/frc/internal/manager"
	"github.com/psantana5/frc/internal/recommend"
	"github.com/psantana5/frc/internal/report"
	"github.com/psantana5/frc/internal/settings"
	"github.com/psantana5/frc/internal/store"
	"github.com/psantana5/frc/internal/supervisor"
)

// Version is set at build time
var Version = "dev"

var (
	cfgFile     string
	logLevel    string
	noColor     bool
	memoryMB    int
	runtimeName string
	showReport  bool

	v         *viper.Viper
	configErr error
	app       *application
	exitCode  int
)

// application holds the collaborators built from settings for one execution
type application struct {
	settings *settings.Settings
	logger   *logging.Logger
	store    *store.FileStore
	metrics  *report.Metrics
	notifier *manager.Notifier
	manager  *manager.Manager
}

// rootCmd runs a JavaScript runtime command with a managed memory ceiling
var rootCmd = &cobra.Command{
	Use:           "frc [flags] COMMAND [ARGS...]",
	Short:         "Frontend Runtime Container - manage JS runtime memory settings",
	Long:          `frc runs node, deno, bun and their package managers with a heap ceiling.

A ceiling given with -m is saved for the current project and reused on the
next run. When the child dies with a JavaScript heap out of memory error the
saved ceiling is raised, so running the same command again uses more memory.

Examples:
  frc -m 4096 npm run build
  frc deno task dev
  frc -r node vite build`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	exitCode = 0
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "❌ Error: %v\n", err)
		if exitCode == 0 {
			exitCode = 1
		}
	}
	if app != nil {
		app.logger.Close()
	}
	return exitCode
}

func init() {
	cobra.OnInitialize(initConfig)

	// Assigned here: setupApp and initConfig refer back to rootCmd
	rootCmd.PersistentPreRunE = setupApp
	rootCmd.RunE = runRoot

	rootCmd.Version = Version
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Everything after COMMAND belongs to the child
	rootCmd.Flags().SetInterspersed(false)
	rootCmd.Flags().IntVarP(&memoryMB, "memory", "m", 0, "memory limit in MB, saved for this project (e.g. 4096)")
	rootCmd.Flags().StringVarP(&runtimeName, "runtime", "r", "", "runtime for commands that cannot be auto-detected: node, deno or bun")
	rootCmd.Flags().BoolVar(&showReport, "report", false, "print a run summary and counters to stderr after the child exits")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default is <user config dir>/frc/settings.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "diagnostic log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored notices")
}

// initConfig prepares settings from the config file, FRC_* variables and flags
func initConfig() {
	v = viper.New()
	settings.Configure(v, cfgFile)

	configErr = nil
	for key, flag := range map[string]string{
		settings.KeyLogLevel: "log-level",
		settings.KeyNoColor:  "no-color",
	} {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			configErr = err
		}
	}

	if err := settings.Read(v, cfgFile != ""); err != nil {
		configErr = err
	}
}

// setupApp builds the collaborators every command shares
func setupApp(cmd *cobra.Command, args []string) error {
	if configErr != nil {
		return configErr
	}
	if v == nil {
		initConfig()
	}

	s, err := settings.Load(v)
	if err != nil {
		return err
	}

	logger, err := logging.Open(logging.Options{
		Level:  s.Level(),
		JSON:   s.LogFormat == "json",
		File:   s.LogFile,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	notifier := manager.NewNotifier(cmd.ErrOrStderr(), s.NoColor)
	st := store.NewFileStore(s.StateFile, store.WithWarningHandler(func(err error) {
		logger.Warn("project state problem", map[string]interface{}{"error": err.Error()})
		notifier.Warn("⚠️  %v", err)
	}))

	metrics := report.NewMetrics()
	runner := supervisor.New(supervisor.Config{
		Stdin:      cmd.InOrStdin(),
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
		TailBytes:  s.TailBytes(),
		Classifier: supervisor.SignatureClassifier(s.Signatures()...),
	}, logger)

	app = &application{
		settings: s,
		logger:   logger,
		store:    st,
		metrics:  metrics,
		notifier: notifier,
		manager: manager.New(manager.Options{
			Store:    st,
			Runner:   runner,
			Advisor:  recommend.NewAdvisor(),
			Notifier: notifier,
			Logger:   logger,
			Metrics:  metrics,
		}),
	}
	logger.Debug("settings loaded", map[string]interface{}{
		"state_file": s.StateFile,
		"config":     v.ConfigFileUsed(),
	})
	return nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	if cmd.Flags().Changed("memory") && memoryMB <= 0 {
		return fmt.Errorf("memory must be a positive number of MB, got %d", memoryMB)
	}

	req := manager.Request{
		Command:  args[0],
		Args:     args[1:],
		MemoryMB: memoryMB,
	}
	if runtimeName != "" {
		kind, err := parseRuntime(runtimeName)
		if err != nil {
			return err
		}
		req.Runtime = kind
	}

	res, err := app.manager.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	if showReport {
		writeReport(cmd.ErrOrStderr(), res)
	}
	exitCode = res.ExitCode
	return nil
}

// parseRuntime accepts a runtime name or any command alias of it
func parseRuntime(name string) (jsruntime.Kind, error) {
	kind, err := jsruntime.ParseKind(name)
	if err == nil {
		return kind, nil
	}
	if alias, aliasErr := jsruntime.FromCommand(name); aliasErr == nil {
		return alias, nil
	}
	return "", err
}

func writeReport(w io.Writer, res *manager.Result) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, res.Report.Summary())
	if err := app.metrics.WriteText(w); err != nil {
		app.logger.Warn("failed to write run counters", map[string]interface{}{"error": err.Error()})
	}
}
