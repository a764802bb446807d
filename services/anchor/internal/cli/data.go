package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/services/anchor/internal/engine"
)

// envelope prints env and maps a failed envelope onto ErrOperationFailed.
func (a *App) envelope(env adapter.Envelope) error {
	if err := a.printer().Envelope(env); err != nil {
		return err
	}
	if !env.Success {
		return ErrOperationFailed
	}
	return nil
}

// dataCommand runs op on an engine and prints its envelope.
func (a *App) dataCommand(cmd *cobra.Command, op func(ctx context.Context, e *engine.Engine) adapter.Envelope) error {
	return a.withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
		return a.envelope(op(ctx, e))
	})
}

func (a *App) readStatement(args []string, file string) (string, error) {
	switch {
	case file == "-":
		b, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read statement from stdin: %w", err)
		}
		return string(b), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read statement file: %w", err)
		}
		return string(b), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	}
	return "", fmt.Errorf("a statement or --file is required")
}

func (a *App) queryCommand() *cobra.Command {
	var (
		file   string
		params []string
	)
	cmd := &cobra.Command{
		Use:   "query NAME [STATEMENT...]",
		Short: "Execute a statement against a data source",
		Long: `Execute a statement. Relational sources accept ';' separated scripts, the
document source accepts db.<collection>.<op>(...) calls or a JSON command
document, the key-value source accepts one command per line.

Examples:
  anchor query shop "USE shop; SELECT * FROM orders LIMIT 5"
  anchor query docs 'db.users.find({"active": true})'
  anchor query cache -f commands.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statement, err := a.readStatement(args[1:], file)
			if err != nil {
				return err
			}
			var values []interface{}
			for _, p := range params {
				values = append(values, p)
			}
			return a.dataCommand(cmd, func(ctx context.Context, e *engine.Engine) adapter.Envelope {
				return e.Execute(ctx, args[0], statement, values)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the statement from a file ('-' for stdin)")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Positional parameter (repeatable)")
	return cmd
}

func (a *App) schemasCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas NAME",
		Short: "List schemas, databases or logical databases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dataCommand(cmd, func(ctx context.Context, e *engine.Engine) adapter.Envelope {
				return e.ListSchemas(ctx, args[0])
			})
		},
	}
}

func (a *App) tablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables NAME [SCHEMA]",
		Short: "List tables, collections or keys",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema := ""
			if len(args) == 2 {
				schema = args[1]
			}
			return a.dataCommand(cmd, func(ctx context.Context, e *engine.Engine) adapter.Envelope {
				return e.ListTables(ctx, args[0], schema)
			})
		},
	}
}

func (a *App) structureCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "structure NAME SCHEMA TABLE",
		Short: "Describe columns, indexes and foreign keys of a table",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dataCommand(cmd, func(ctx context.Context, e *engine.Engine) adapter.Envelope {
				return e.Structure(ctx, args[0], args[1], args[2])
			})
		},
	}
}

func (a *App) rowsCommand() *cobra.Command {
	req := adapter.PageRequest{}
	cmd := &cobra.Command{
		Use:   "rows NAME SCHEMA TABLE",
		Short: "Show one page of rows",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := req
			r.Schema = args[1]
			r.Table = args[2]
			return a.dataCommand(cmd, func(ctx context.Context, e *engine.Engine) adapter.Envelope {
				return e.Paginate(ctx, args[0], r)
			})
		},
	}
	cmd.Flags().IntVar(&req.Page, "page", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&req.PageSize, "page-size", 0, "Rows per page (configured default when 0)")
	cmd.Flags().StringVar(&req.Filter, "filter", "", "SQL condition, JSON filter or key pattern, depending on the engine")
	cmd.Flags().StringVar(&req.OrderBy, "order-by", "", "Column to sort by; prefix with '-' or add ' desc' for descending")
	return cmd
}

func (a *App) exportCommand() *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export NAME SCHEMA TABLE",
		Short: "Export a whole table as JSON or CSV",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := adapter.ParseExportFormat(format)
			if err != nil {
				return err
			}
			return a.withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
				env := e.Export(ctx, args[0], args[1], args[2], f)
				if !env.Success {
					return a.envelope(env)
				}
				text, _ := env.Data.(string)
				if out == "" {
					_, err := io.WriteString(a.stdout, text)
					return err
				}
				if err := os.WriteFile(out, []byte(text), 0o600); err != nil {
					return fmt.Errorf("failed to write export: %w", err)
				}
				fmt.Fprintf(a.stderr, "Exported %s.%s to %s\n", args[1], args[2], out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", string(adapter.ExportJSON), "Export format: json or csv")
	cmd.Flags().StringVar(&out, "out", "", "Write to this file instead of stdout")
	return cmd
}
