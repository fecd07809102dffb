package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/catwalk/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("catwalk", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
Catwalk - An incremental, dependency-aware data catalog builder.

Usage:
  catwalk [options] [DAG_PATH]

Arguments:
  DAG_PATH
    Path to a single .hcl file or a directory containing .hcl files
    declaring the step graph.

Options:
`)
		flagSet.PrintDefaults()
	}

	dagFlag := flagSet.String("dag", "", "Path to the DAG file or directory.")
	dFlag := flagSet.String("d", "", "Path to the DAG file or directory (shorthand).")
	modulesPathFlag := flagSet.String("modules-path", "", "Path to the directory containing runner manifests.")
	catalogDirFlag := flagSet.String("catalog-dir", "", "Root directory of the dataset catalog.")
	snapshotDirFlag := flagSet.String("snapshot-dir", "", "Root directory of the snapshot store.")
	stateDBFlag := flagSet.String("state-db", "", "Path to the run history database file.")
	uploadURLFlag := flagSet.String("upload-url", "", "Base URL for snapshot uploads.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 10, "Number of concurrent workers for the executor.")
	attemptsFlag := flagSet.Int("attempts", 1, "Number of attempts per step before it is marked failed.")
	forceFlag := flagSet.Bool("force", false, "Rebuild every selected step regardless of checksums.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Print the plan without executing any step.")
	selectFlag := flagSet.String("select", "", "Run only steps whose URI contains this substring, plus their dependencies.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *dagFlag != "" {
		path = *dagFlag
	} else if *dFlag != "" {
		path = *dFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("DAG path determined.", "path", path)

	if path == "" {
		slog.Debug("No DAG path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		DAGPath:         path,
		ModulesPath:     *modulesPathFlag,
		CatalogDir:      *catalogDirFlag,
		SnapshotDir:     *snapshotDirFlag,
		StateDBPath:     *stateDBFlag,
		UploadURL:       *uploadURLFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		WorkerCount:     *workersFlag,
		Attempts:        *attemptsFlag,
		Force:           *forceFlag,
		DryRun:          *dryRunFlag,
		Select:          *selectFlag,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
