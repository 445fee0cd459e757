package terminal

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/de-tools/site-report/pkg/export"
	termexport "github.com/de-tools/site-report/pkg/runtime/terminal/export"
	"github.com/de-tools/site-report/pkg/services/complaint"
	"github.com/de-tools/site-report/pkg/services/report"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type Deliverer interface {
	Export(ctx context.Context, reportID string) (*export.Document, error)
	Send(ctx context.Context, reportID, to string) (bool, error)
}

// Backend is what a single command invocation works against. Close commits
// pending work and releases the database.
type Backend struct {
	Reports    report.Service
	Complaints complaint.Service
	Delivery   Deliverer
	Close      func(ctx context.Context) error
}

// Opener builds a Backend from the config file at path.
type Opener func(ctx context.Context, configPath string) (*Backend, error)

// CLI represents the command-line interface
type CLI struct {
	open       Opener
	reporter   *termexport.Reporter
	output     io.Writer
	logger     zerolog.Logger
	rootCmd    *cobra.Command
	configPath string
	verbose    bool
}

// Options contain configuration for the CLI
type Options struct {
	Open   Opener
	Output io.Writer
	Logger *zerolog.Logger
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	cli := &CLI{
		open:     opts.Open,
		reporter: termexport.NewReporter(opts.Output),
		output:   opts.Output,
		logger:   logger,
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) ExecuteContext(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "site-report",
		Short:         "Manage site inspection reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(cli.output)

	cmd.PersistentFlags().StringVarP(&cli.configPath, "config", "c", "", "Path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Log debug output to stderr")

	cmd.AddCommand(cli.newReportsCmd())
	cmd.AddCommand(cli.newComplaintsCmd())
	cmd.AddCommand(cli.newItemsCmd())

	return cmd
}

// run opens the backend for the duration of one command and closes it
// afterwards, so deferred work never outlives the process.
func (cli *CLI) run(fn func(ctx context.Context, b *Backend, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		level := zerolog.WarnLevel
		if cli.verbose {
			level = zerolog.DebugLevel
		}
		logger := cli.logger.Level(level)
		ctx := logger.WithContext(cmd.Context())

		if cli.open == nil {
			return fmt.Errorf("no backend configured")
		}
		b, err := cli.open(ctx, cli.configPath)
		if err != nil {
			return err
		}
		defer func() {
			if b.Close == nil {
				return
			}
			if err := b.Close(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to close backend")
			}
		}()

		return fn(ctx, b, args)
	}
}
