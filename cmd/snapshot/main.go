package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/vk/catwalk/internal/cli"
	"github.com/vk/catwalk/internal/ctxlog"
	"github.com/vk/catwalk/internal/snapshot"
	"github.com/vk/catwalk/internal/stepid"
)

// env-only settings of the ingestion tool.
type envConfig struct {
	SnapshotDir string `env:"CATWALK_SNAPSHOT_DIR" envDefault:"data/snapshots"`
	UploadURL   string `env:"CATWALK_UPLOAD_URL"`
}

// main is the entrypoint for the snapshot ingestion tool.
func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses flags, ingests the file into the snapshot store and optionally
// uploads it to the remote archive.
func run(outW io.Writer, args []string) error {
	flagSet := flag.NewFlagSet("catwalk-snapshot", flag.ContinueOnError)
	flagSet.SetOutput(outW)

	flagSet.Usage = func() {
		fmt.Fprint(outW, `
Catwalk snapshot - ingests a raw source file into the snapshot store.

Usage:
  catwalk-snapshot [options]

Options:
`)
		flagSet.PrintDefaults()
	}

	namespaceFlag := flagSet.String("namespace", "", "Namespace of the snapshot, e.g. 'energy'.")
	versionFlag := flagSet.String("version", "", "Version of the snapshot as an ISO date, e.g. '2024-06-20'.")
	fileNameFlag := flagSet.String("filename", "", "File name the snapshot is stored under.")
	pathFlag := flagSet.String("path-to-file", "", "Path of the local file to ingest.")
	snapshotDirFlag := flagSet.String("snapshot-dir", "", "Root directory of the snapshot store.")
	uploadFlag := flagSet.Bool("upload", false, "Upload the snapshot to the remote archive after ingestion.")
	skipUploadFlag := flagSet.Bool("skip-upload", false, "Ingest locally only, never upload.")
	uploadURLFlag := flagSet.String("upload-url", "", "Base URL for snapshot uploads.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	originProducerFlag := flagSet.String("origin-producer", "", "Producer of the upstream data.")
	originTitleFlag := flagSet.String("origin-title", "", "Title of the upstream publication.")
	originURLFlag := flagSet.String("origin-url", "", "URL of the upstream publication.")
	originDateFlag := flagSet.String("origin-date", "", "Publication date of the upstream data.")
	licenseNameFlag := flagSet.String("license-name", "", "Name of the upstream license.")
	licenseURLFlag := flagSet.String("license-url", "", "URL of the upstream license.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return &cli.ExitError{Code: 2, Message: err.Error()}
	}

	if *namespaceFlag == "" || *versionFlag == "" || *fileNameFlag == "" || *pathFlag == "" {
		flagSet.Usage()
		return &cli.ExitError{Code: 2, Message: "flags --namespace, --version, --filename and --path-to-file are required"}
	}
	if *uploadFlag && *skipUploadFlag {
		return &cli.ExitError{Code: 2, Message: "flags --upload and --skip-upload are mutually exclusive"}
	}

	var level slog.Level
	switch strings.ToLower(*logLevelFlag) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return &cli.ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	logger := slog.New(slog.NewTextHandler(outW, &slog.HandlerOptions{Level: level}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	var defaults envConfig
	if err := env.Parse(&defaults); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	snapshotDir := *snapshotDirFlag
	if snapshotDir == "" {
		snapshotDir = defaults.SnapshotDir
	}
	uploadURL := *uploadURLFlag
	if uploadURL == "" {
		uploadURL = defaults.UploadURL
	}

	id, err := stepid.ParseSnapshot(
		stepid.SnapshotScheme + *namespaceFlag + "/" + *versionFlag + "/" + *fileNameFlag)
	if err != nil {
		return &cli.ExitError{Code: 2, Message: err.Error()}
	}

	meta := snapshot.Meta{}
	if *originProducerFlag != "" || *originTitleFlag != "" || *originURLFlag != "" || *originDateFlag != "" {
		meta.Origin = &snapshot.Origin{
			Producer:      *originProducerFlag,
			Title:         *originTitleFlag,
			URL:           *originURLFlag,
			DatePublished: *originDateFlag,
		}
	}
	if *licenseNameFlag != "" || *licenseURLFlag != "" {
		meta.License = &snapshot.License{Name: *licenseNameFlag, URL: *licenseURLFlag}
	}

	store, err := snapshot.NewStore(snapshotDir)
	if err != nil {
		return err
	}

	snap, err := store.Create(ctx, id, meta, *pathFlag)
	if err != nil {
		return err
	}
	fmt.Fprintf(outW, "%s\n", snap.ID.String())

	if *uploadFlag && !*skipUploadFlag {
		if err := snapshot.Upload(ctx, snap, uploadURL); err != nil {
			return err
		}
	}
	return nil
}
