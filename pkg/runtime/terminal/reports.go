package terminal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	termexport "github.com/de-tools/site-report/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

func (cli *CLI) newReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List, create and deliver reports",
	}

	cmd.AddCommand(
		cli.newReportsListCmd(),
		cli.newReportsCreateCmd(),
		cli.newReportsShowCmd(),
		cli.newReportsDeleteCmd(),
		cli.newReportsTitlesCmd(),
		cli.newReportsExportCmd(),
		cli.newReportsSendCmd(),
	)
	return cmd
}

func (cli *CLI) newReportsListCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all reports",
		Args:  cobra.NoArgs,
		RunE: cli.run(func(ctx context.Context, b *Backend, _ []string) error {
			format, err := termexport.ParseFormat(output)
			if err != nil {
				return err
			}
			reports, err := b.Reports.GetAll(ctx)
			if err != nil {
				return fmt.Errorf("failed to list reports: %w", err)
			}
			return cli.reporter.Summaries(reports, format)
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(termexport.FormatText), "Output format: text or yaml")
	return cmd
}

func (cli *CLI) newReportsCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty report",
		Args:  cobra.NoArgs,
		RunE: cli.run(func(ctx context.Context, b *Backend, _ []string) error {
			r, err := b.Reports.Create(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to create report: %w", err)
			}
			_, err = fmt.Fprintln(cli.output, r.ID)
			return err
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "Report name (derived from the creation time when empty)")
	return cmd
}

func (cli *CLI) newReportsShowCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show <report-id>",
		Short: "Show a report with its complaints",
		Args:  cobra.ExactArgs(1),
		RunE: cli.run(func(ctx context.Context, b *Backend, args []string) error {
			format, err := termexport.ParseFormat(output)
			if err != nil {
				return err
			}
			r, err := b.Reports.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get report: %w", err)
			}
			if r == nil {
				return fmt.Errorf("report %s not found", args[0])
			}
			return cli.reporter.Report(r, format)
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(termexport.FormatText), "Output format: text or yaml")
	return cmd
}

func (cli *CLI) newReportsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <report-id>",
		Short: "Delete a report with all its complaints",
		Args:  cobra.ExactArgs(1),
		RunE: cli.run(func(ctx context.Context, b *Backend, args []string) error {
			ok, err := b.Reports.Delete(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to delete report: %w", err)
			}
			if !ok {
				return fmt.Errorf("report %s not found", args[0])
			}
			return nil
		}),
	}
}

func (cli *CLI) newReportsTitlesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "titles <report-id>",
		Short: "Generate complaint titles",
		Args:  cobra.ExactArgs(1),
		RunE: cli.run(func(ctx context.Context, b *Backend, args []string) error {
			r, err := b.Reports.GenerateTitles(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to generate titles: %w", err)
			}
			if r == nil {
				return fmt.Errorf("report %s not found", args[0])
			}
			return cli.reporter.Report(r, termexport.FormatText)
		}),
	}
}

func (cli *CLI) newReportsExportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export <report-id>",
		Short: "Write the report as a Word document",
		Args:  cobra.ExactArgs(1),
		RunE: cli.run(func(ctx context.Context, b *Backend, args []string) error {
			doc, err := b.Delivery.Export(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to export report: %w", err)
			}
			if doc == nil {
				return fmt.Errorf("report %s not found", args[0])
			}

			path := filepath.Join(dir, doc.Filename)
			if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			_, err = fmt.Fprintln(cli.output, path)
			return err
		}),
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write the document to")
	return cmd
}

func (cli *CLI) newReportsSendCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "send <report-id>",
		Short: "Mail the report as a Word attachment",
		Args:  cobra.ExactArgs(1),
		RunE: cli.run(func(ctx context.Context, b *Backend, args []string) error {
			ok, err := b.Delivery.Send(ctx, args[0], to)
			if err != nil {
				return fmt.Errorf("failed to send report: %w", err)
			}
			if !ok {
				return fmt.Errorf("report %s not found", args[0])
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&to, "to", "", "Recipient address")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
