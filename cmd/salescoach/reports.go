package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"salescoach/internal/reports"
)

func newReportsCmd() *cobra.Command {
	reportsCmd := &cobra.Command{
		Use:   "reports",
		Short: "Browse, export and delete saved evaluation reports",
	}

	reportsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Reports()
			if err != nil {
				return err
			}
			list, err := store.List()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "暂无历史报告")
				return nil
			}
			for _, s := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d\n",
					s.ID, s.Timestamp.Format("2006-01-02 15:04:05"), s.Persona, s.ConversationLength)
			}
			return nil
		},
	})

	reportsCmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print a report as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Reports()
			if err != nil {
				return err
			}
			r, err := store.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), reports.Markdown(r))
			return nil
		},
	})

	reportsCmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Reports()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	})

	var format, out string
	exportCmd := &cobra.Command{
		Use:   "export <id>...",
		Short: "Export reports as Markdown or an Excel workbook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Reports()
			if err != nil {
				return err
			}
			selected, err := store.LoadMany(args)
			if err != nil {
				return err
			}
			if len(selected) == 0 {
				return errors.Wrap(reports.ErrNotFound, "nothing to export")
			}
			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return errors.Wrap(err, "create output")
				}
				defer f.Close()
				w = f
			}
			switch format {
			case "md":
				for _, r := range selected {
					if _, err := io.WriteString(w, reports.Markdown(r)+"\n"); err != nil {
						return err
					}
				}
				return nil
			case "xlsx":
				if out == "" {
					return errors.New("xlsx export needs --out")
				}
				return reports.WriteExcel(w, selected)
			default:
				return errors.Errorf("unknown format %q (want md or xlsx)", format)
			}
		},
	}
	exportCmd.Flags().StringVar(&format, "format", "md", "Export format: md or xlsx")
	exportCmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	reportsCmd.AddCommand(exportCmd)

	return reportsCmd
}
