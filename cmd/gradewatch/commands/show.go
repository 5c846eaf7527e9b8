package commands

import (
	"gradewatch/internal/record"
	"gradewatch/internal/store"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	showCmd.AddCommand(showGradesCmd, showContentCmd)
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Prints stored state.",
}

func renderRecords(schema record.Schema, records []*record.Record) string {
	t := table.NewWriter()

	names := schema.Names()
	header := make(table.Row, len(names))
	for i, name := range names {
		header[i] = name
	}
	t.AppendHeader(header)

	for _, r := range records {
		item := schema.ToItem(*r)
		row := make(table.Row, len(names))
		for i, name := range names {
			row[i] = item[name]
		}
		t.AppendRow(row)
	}

	t.SetStyle(table.StyleRounded)
	return t.Render()
}

var showGradesCmd = &cobra.Command{
	Use:   "grades",
	Short: "Prints the stored grade records as a table.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if a.config.Grades == nil {
			return errGradesNotConfigured
		}
		schema, err := a.config.Grades.Schema()
		if err != nil {
			return err
		}
		records, err := a.recordStore(cmd.Context())
		if err != nil {
			return err
		}
		loaded, err := records.Load(cmd.Context())
		if err != nil {
			return err
		}

		_, err = os.Stdout.WriteString(renderRecords(schema, loaded) + "\n")
		return err
	},
}

func renderContent(state store.ContentState) string {
	t := table.NewWriter()
	t.SetTitle("last update: %s", state.LastUpdate.Format(time.DateTime))
	t.AppendHeader(table.Row{"#", "id"})
	for i, id := range state.Items {
		t.AppendRow(table.Row{i + 1, id})
	}
	t.SetStyle(table.StyleRounded)
	return t.Render()
}

var showContentCmd = &cobra.Command{
	Use:   "content",
	Short: "Prints the content item ids seen so far.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if a.config.Content == nil {
			return errContentNotConfigured
		}
		states, err := a.contentStore(cmd.Context())
		if err != nil {
			return err
		}
		state, err := states.Load(cmd.Context())
		if err != nil {
			return err
		}

		_, err = os.Stdout.WriteString(renderContent(state) + "\n")
		return err
	},
}
