package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"xceldash/adapters/postgres"
	"xceldash/adapters/tabular"
	"xceldash/app"
	"xceldash/domain/core"
	"xceldash/domain/widget"
	"xceldash/internal/ingest"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "xceldash-cli",
		Short: "Xcel Dashboard admin CLI for inspecting files, schemas and function options",
	}

	rootCmd.AddCommand(
		newFilesCmd(),
		newSchemaCmd(),
		newOptionsCmd(),
		newProfileCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func connect() (*sqlx.DB, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return sqlx.Connect("postgres", url)
}

func newFilesCmd() *cobra.Command {
	var completedOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "files",
		Short: "List uploaded files",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect()
			if err != nil {
				return err
			}
			defer db.Close()

			registry := app.NewRegistryService(postgres.NewFileRepository(db))

			files, err := registry.List(cmd.Context(), limit, 0)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFILENAME\tSTATUS\tROWS\tCOLS\tSOURCE")
			for _, f := range files {
				if completedOnly && !f.IsCompleted() {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					f.ID, f.OriginalFilename, f.Status, f.Schema.TotalRows, f.Schema.TotalColumns, f.Source)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Only show completed files")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum files to list")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema [file-id]",
		Short: "Dump a file's parsed schema and column profiles as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseFileID(args[0])
			if err != nil {
				return err
			}

			db, err := connect()
			if err != nil {
				return err
			}
			defer db.Close()

			registry := app.NewRegistryService(postgres.NewFileRepository(db))
			f, err := registry.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(map[string]interface{}{
				"schema":  f.Schema,
				"columns": f.Metadata.Columns,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	return cmd
}

func newOptionsCmd() *cobra.Command {
	var widgetType string

	cmd := &cobra.Command{
		Use:   "options [file-id]",
		Short: "Resolve the function options offered for a file and widget type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseFileID(args[0])
			if err != nil {
				return err
			}

			db, err := connect()
			if err != nil {
				return err
			}
			defer db.Close()

			registry := app.NewRegistryService(postgres.NewFileRepository(db))
			resolver := app.NewFunctionResolver(registry, ingest.NewLoader())

			options, err := resolver.Options(cmd.Context(), id, widget.Type(widgetType))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tEXPRESSION\tVALUE")
			for _, opt := range options {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", opt.ID, opt.Label, opt.Expression, opt.FormattedValue)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&widgetType, "type", string(widget.TypeKPI), "Widget type (kpi, bar_chart, pie_chart, table)")
	return cmd
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile [path]",
		Short: "Parse and profile a local spreadsheet without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := tabular.NewDataReader(args[0]).ReadData()
			if err != nil {
				return err
			}

			profiles := tabular.ProfileColumns(data)
			out, err := json.MarshalIndent(map[string]interface{}{
				"rows":    data.RowCount(),
				"columns": data.ColumnCount(),
				"headers": data.Headers,
				"profile": profiles,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	return cmd
}
