package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type recordJSON struct {
	Index     int       `json:"index" yaml:"index"`
	ID        string    `json:"id" yaml:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

func newRecordCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "record",
		Aliases: []string{"records"},
		Short:   "Manage timestamped records",
	}

	cmd.AddCommand(
		newRecordAddCmd(app),
		newRecordListCmd(app),
		newRecordDeleteCmd(app),
	)

	return cmd
}

func newRecordAddCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Append a record stamped with the current time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			record, err := app.records.AddRecord(cmd.Context(), app.now())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added record %s at %s\n", record.ID, record.Timestamp.Format(time.RFC3339))
			return err
		},
	}
}

func newRecordListCmd(app *app) *cobra.Command {
	var asJSON bool
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := app.records.ListRecords(cmd.Context())
			if err != nil {
				return err
			}

			payload := make([]recordJSON, 0, len(records))
			for i, record := range records {
				payload = append(payload, recordJSON{Index: i, ID: string(record.ID), Timestamp: record.Timestamp})
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			}
			if asYAML {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(payload); err != nil {
					return err
				}
				return enc.Close()
			}

			if len(records) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No records.")
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "INDEX\tTIMESTAMP\tID")
			for i, record := range records {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", i, record.Timestamp.Format(time.RFC3339), record.ID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Render YAML output")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")

	return cmd
}

func newRecordDeleteCmd(app *app) *cobra.Command {
	var indices []int

	cmd := &cobra.Command{
		Use:   "delete [record-id...]",
		Short: "Delete records by list position or id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(indices) == 0 && len(args) == 0 {
				return errors.New("pass --index or at least one record id")
			}

			ids := make([]domain.RecordID, 0, len(args))
			for _, arg := range args {
				id, err := domain.ParseRecordID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			if len(indices) > 0 {
				deleted, err := app.records.DeleteRecords(cmd.Context(), indices)
				for _, record := range deleted {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted record %s\n", record.ID)
				}
				if err != nil {
					return err
				}
				ids = withoutDeleted(ids, deleted)
			}

			if len(ids) > 0 {
				if err := app.records.DeleteRecordsByID(cmd.Context(), ids); err != nil {
					return err
				}
				for _, id := range ids {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted record %s\n", id)
				}
			}

			return nil
		},
	}

	cmd.Flags().IntSliceVar(&indices, "index", nil, "Position of a record in `record list` (repeatable)")

	return cmd
}

// withoutDeleted drops ids already removed through --index.
func withoutDeleted(ids []domain.RecordID, deleted []domain.Record) []domain.RecordID {
	if len(ids) == 0 || len(deleted) == 0 {
		return ids
	}

	gone := make(map[domain.RecordID]struct{}, len(deleted))
	for _, record := range deleted {
		gone[record.ID] = struct{}{}
	}

	remaining := ids[:0]
	for _, id := range ids {
		if _, ok := gone[id]; !ok {
			remaining = append(remaining, id)
		}
	}
	return remaining
}
