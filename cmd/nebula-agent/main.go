package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/nebula-agent/pkg/config"
	"github.com/ajitpratap0/nebula-agent/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-agent/pkg/logger"
	"github.com/ajitpratap0/nebula-agent/pkg/observability"

	// Register readers
	_ "github.com/ajitpratap0/nebula-agent/pkg/connector/sources/sqlserver"
)

var version = "0.1.0"

// secretKeys are masked when a profile is printed.
var secretKeys = []string{"password", "secret", "token"}

func main() {
	root := &cobra.Command{
		Use:   "nebula-agent",
		Short: "Nebula agent - SQL query reader",
		Long: `nebula-agent runs an agent reader job: it executes the configured SQL query
and emits every result row as one delimited record.`,
		SilenceUsage: true,
	}

	var logLevel string
	var traceSpans bool
	shutdownTracing := func(context.Context) error { return nil }
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&traceSpans, "trace", false, "Write trace spans to stderr")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := logger.Init(logger.Config{Level: logLevel}); err != nil {
			return err
		}
		if traceSpans {
			shutdown, err := observability.InitTracing(cmd.ErrOrStderr(), "nebula-agent", version)
			if err != nil {
				return err
			}
			shutdownTracing = shutdown
		}
		return nil
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return shutdownTracing(cmd.Context())
	}

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nebula-agent v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	// List command to show available readers
	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available readers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available Readers:")
			for _, name := range registry.ListReaders() {
				fmt.Printf("  - %s\n", name)
			}
		},
	})

	// Profile command prints the resolved job profile
	var profileFile string
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Print the resolved job profile with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := config.LoadJobProfile(profileFile)
			if err != nil {
				return err
			}
			return profile.Dump(cmd.OutOrStdout(), secretKeys...)
		},
	}
	profileCmd.Flags().StringVarP(&profileFile, "job", "j", "", "Path to job profile (required)")
	_ = profileCmd.MarkFlagRequired("job")
	root.AddCommand(profileCmd)

	// Main read command
	opts := &readOptions{}
	readCmd := &cobra.Command{
		Use:   "read",
		Short: "Run a reader job",
		Long: `Run a reader job described by a job profile. Records are written to stdout,
one per line, unless Kafka brokers are given.

Example:
  nebula-agent read --job job.yaml
  nebula-agent read --job job.yaml --kafka-brokers k1:9092,k2:9092 --topic records`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := executeRead(ctx, opts, cmd.OutOrStdout())
			if summary != nil {
				enc := gojson.NewEncoder(cmd.ErrOrStderr())
				enc.SetIndent("", "  ")
				_ = enc.Encode(summary)
			}
			return err
		},
	}
	readCmd.Flags().StringVarP(&opts.jobFile, "job", "j", "", "Path to job profile (required)")
	readCmd.Flags().StringVar(&opts.reader, "reader", "sqlserver", "Reader to run")
	readCmd.Flags().StringVar(&opts.query, "sql", "", "Query to run; overrides job.sql.command")
	readCmd.Flags().StringSliceVar(&opts.kafkaBrokers, "kafka-brokers", nil, "Kafka brokers, overriding sink.kafka.brokers; records are published instead of printed")
	readCmd.Flags().StringVar(&opts.topic, "topic", "", "Kafka topic, overriding sink.kafka.topic")
	readCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write records to this file instead of stdout")
	readCmd.Flags().StringVar(&opts.compression, "compression", "none", "Output file compression (none, gzip, snappy, s2, lz4, zstd)")
	readCmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	_ = readCmd.MarkFlagRequired("job")
	root.AddCommand(readCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}
