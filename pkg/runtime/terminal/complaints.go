package terminal

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/de-tools/site-report/pkg/models/domain"
	"github.com/spf13/cobra"
)

func (cli *CLI) newComplaintsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complaints",
		Short: "Manage the complaints of a report",
	}

	var complaintType string
	add := &cobra.Command{
		Use:   "add <report-id>",
		Short: "Add a complaint to a report",
		Args:  cobra.ExactArgs(1),
		RunE: cli.run(func(ctx context.Context, b *Backend, args []string) error {
			c, err := b.Reports.AddComplaint(ctx, args[0], domain.ComplaintType(complaintType))
			if err != nil {
				return fmt.Errorf("failed to add complaint: %w", err)
			}
			if c == nil {
				return fmt.Errorf("report %s not found", args[0])
			}
			_, err = fmt.Fprintln(cli.output, c.ID)
			return err
		}),
	}
	add.Flags().StringVarP(&complaintType, "type", "t", string(domain.ComplaintTypeFinding), "Complaint type: finding or action")

	var listType string
	list := &cobra.Command{
		Use:   "list",
		Short: "Print the IDs of all complaints of one type",
		Args:  cobra.NoArgs,
		RunE: cli.run(func(ctx context.Context, b *Backend, _ []string) error {
			ids, err := b.Complaints.ListByType(ctx, domain.ComplaintType(listType))
			if err != nil {
				return fmt.Errorf("failed to list complaints: %w", err)
			}
			for _, id := range ids {
				if _, err := fmt.Fprintln(cli.output, id); err != nil {
					return err
				}
			}
			return nil
		}),
	}
	list.Flags().StringVarP(&listType, "type", "t", string(domain.ComplaintTypeFinding), "Complaint type: finding or action")

	cmd.AddCommand(add, list)
	return cmd
}

func (cli *CLI) newItemsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Manage the items of a complaint",
	}

	var (
		kind string
		text string
		file string
	)
	add := &cobra.Command{
		Use:   "add <complaint-id>",
		Short: "Attach a text, recording or image to a complaint",
		Args:  cobra.ExactArgs(1),
		RunE: cli.run(func(ctx context.Context, b *Backend, args []string) error {
			input, err := itemInput(domain.ItemKind(kind), text, file)
			if err != nil {
				return err
			}
			it, err := b.Complaints.AddItem(ctx, args[0], input)
			if err != nil {
				return fmt.Errorf("failed to add item: %w", err)
			}
			if it == nil {
				return fmt.Errorf("complaint %s not found", args[0])
			}
			_, err = fmt.Fprintln(cli.output, it.ID)
			return err
		}),
	}
	add.Flags().StringVarP(&kind, "kind", "k", string(domain.ItemKindText), "Item kind: text, recording or image")
	add.Flags().StringVar(&text, "text", "", "Text of a text item, or the transcript of a recording")
	add.Flags().StringVarP(&file, "file", "f", "", "Audio or image file")

	cmd.AddCommand(add)
	return cmd
}

func itemInput(kind domain.ItemKind, text, file string) (domain.ItemInput, error) {
	input := domain.ItemInput{Kind: kind, Text: text}
	if file == "" {
		return input, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return input, fmt.Errorf("failed to read %s: %w", file, err)
	}
	payload := &domain.Blob{ContentType: http.DetectContentType(data), Data: data}

	switch kind {
	case domain.ItemKindRecording:
		input.Audio = payload
	case domain.ItemKindImage:
		input.Image = payload
	default:
		return input, fmt.Errorf("--file is only valid for recording and image items")
	}
	return input, nil
}
