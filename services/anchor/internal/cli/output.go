package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/services/anchor/internal/catalog"
	"github.com/redbco/redb-anchor/services/anchor/internal/engine"
)

// Output formats accepted by --output.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

func validOutput(format string) error {
	switch format {
	case OutputTable, OutputJSON, OutputYAML:
		return nil
	}
	return fmt.Errorf("invalid output format %q (want table, json or yaml)", format)
}

// printer renders command results in the selected format.
type printer struct {
	format string
	w      io.Writer
}

func (p *printer) structured(v interface{}) error {
	switch p.format {
	case OutputJSON:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.w, string(b))
		return err
	default:
		// Round trip through JSON so custom MarshalJSON methods and json
		// tags shape the YAML as well.
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic interface{}
		if err := json.Unmarshal(b, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	}
}

func (p *printer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
}

// Definitions prints a list of data sources.
func (p *printer) Definitions(defs []*catalog.Definition) error {
	redacted := make([]*catalog.Definition, len(defs))
	for i, d := range defs {
		redacted[i] = d.Redacted()
	}
	if p.format != OutputTable {
		return p.structured(redacted)
	}
	if len(defs) == 0 {
		_, err := fmt.Fprintln(p.w, "No data sources found")
		return err
	}

	w := p.table()
	fmt.Fprintln(w, "NAME\tTYPE\tTARGET\tSTATUS\tTAGS\tCONNECTS\tFAILED\tAVG MS")
	for _, d := range redacted {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%.1f\n",
			d.Name, d.Type, target(d), d.Status, strings.Join(d.Tags, ","),
			d.ConnectionStats.TotalConnections, d.ConnectionStats.FailedConnections,
			d.ConnectionStats.AvgResponseTimeMs)
	}
	return w.Flush()
}

func target(d *catalog.Definition) string {
	c := d.Config
	if c.URL != "" && c.Host == "" {
		return c.URL
	}
	addr := c.Host
	if c.Port > 0 {
		addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	}
	if c.Database != "" {
		return addr + "/" + c.Database
	}
	if c.DB != nil {
		return fmt.Sprintf("%s/db%d", addr, *c.DB)
	}
	return addr
}

// Definition prints one data source in detail.
func (p *printer) Definition(d *catalog.Definition) error {
	r := d.Redacted()
	if p.format != OutputTable {
		return p.structured(r)
	}

	w := p.table()
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(w, "%s:\t%s\n", k, v)
		}
	}
	row("Name", r.Name)
	row("ID", r.ID)
	row("Type", string(r.Type))
	row("Description", r.Description)
	row("Tags", strings.Join(r.Tags, ", "))
	row("Status", string(r.Status))
	if r.ConnectionID != nil {
		row("Connection ID", *r.ConnectionID)
	}
	row("Host", r.Config.Host)
	if r.Config.Port > 0 {
		row("Port", fmt.Sprint(r.Config.Port))
	}
	row("User", r.Config.User)
	row("Password", r.Config.Password)
	row("Database", r.Config.Database)
	row("URL", r.Config.URL)
	if r.Config.DB != nil {
		row("DB", fmt.Sprint(*r.Config.DB))
	}
	if r.Config.SSL {
		row("SSL", "enabled")
		row("SSL Mode", r.Config.SSLMode)
	}
	keys := make([]string, 0, len(r.Config.Options))
	for k := range r.Config.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		row("Option "+k, r.Config.Options[k])
	}
	row("Created", r.CreatedAt.Format(time.RFC3339))
	row("Updated", r.UpdatedAt.Format(time.RFC3339))
	if r.LastConnected != nil {
		row("Last Connected", r.LastConnected.Format(time.RFC3339))
	}
	row("Connections", fmt.Sprintf("%d total, %d failed, %.1f ms avg",
		r.ConnectionStats.TotalConnections, r.ConnectionStats.FailedConnections,
		r.ConnectionStats.AvgResponseTimeMs))
	return w.Flush()
}

// Tags prints tag usage counts.
func (p *printer) Tags(tags []catalog.TagCount) error {
	if p.format != OutputTable {
		return p.structured(tags)
	}
	w := p.table()
	fmt.Fprintln(w, "TAG\tSOURCES")
	for _, t := range tags {
		fmt.Fprintf(w, "%s\t%d\n", t.Tag, t.Count)
	}
	return w.Flush()
}

// Health prints a health report.
func (p *printer) Health(r engine.Report) error {
	if p.format != OutputTable {
		return p.structured(r)
	}
	fmt.Fprintf(p.w, "Status: %s\n", r.Status)
	if len(r.Checks) == 0 {
		return nil
	}
	w := p.table()
	fmt.Fprintln(w, "SOURCE\tSTATUS\tLATENCY\tMESSAGE")
	for _, c := range r.Checks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, c.Status, c.Latency.Round(time.Microsecond), c.Message)
	}
	return w.Flush()
}

// Envelope prints the result of a data operation. Failures are printed
// too; the caller turns them into a non-zero exit.
func (p *printer) Envelope(env adapter.Envelope) error {
	if p.format != OutputTable {
		return p.structured(env)
	}
	if !env.Success {
		fmt.Fprintf(p.w, "Error: %s\n", env.Error)
		if env.SQL != "" {
			fmt.Fprintf(p.w, "SQL: %s\n", env.SQL)
		}
		if env.Suggestion != "" {
			fmt.Fprintf(p.w, "Suggestion: %s\n", env.Suggestion)
		}
		return nil
	}

	if err := p.data(env.Data); err != nil {
		return err
	}
	if env.Meta != nil {
		parts := []string{fmt.Sprintf("%d ms", env.Meta.ExecutionTimeMs)}
		if env.Meta.RowCount != nil {
			parts = append(parts, fmt.Sprintf("%d row(s)", *env.Meta.RowCount))
		}
		if env.Meta.AffectedRows != nil && *env.Meta.AffectedRows > 0 {
			parts = append(parts, fmt.Sprintf("%d affected", *env.Meta.AffectedRows))
		}
		fmt.Fprintf(p.w, "(%s)\n", strings.Join(parts, ", "))
	}
	return nil
}

func (p *printer) data(data interface{}) error {
	switch v := data.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(p.w, v)
		return err
	case []string:
		for _, s := range v {
			fmt.Fprintln(p.w, s)
		}
		return nil
	case []map[string]interface{}:
		return p.rows(adapter.ColumnsOf(v), v)
	case *adapter.Page:
		if err := p.rows(v.Columns, v.Rows); err != nil {
			return err
		}
		pg := v.Pagination
		_, err := fmt.Fprintf(p.w, "Page %d of %d (%d rows total)\n", pg.Page, pg.TotalPages, pg.TotalRows)
		return err
	case *adapter.Structure:
		return p.structure(v)
	case []adapter.CommandResult:
		w := p.table()
		fmt.Fprintln(w, "COMMAND\tOK\tRESULT")
		for _, r := range v {
			out := adapter.FormatValue(r.Result)
			if !r.Success {
				out = r.Error
			}
			fmt.Fprintf(w, "%s\t%t\t%s\n", r.Command, r.Success, out)
		}
		return w.Flush()
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		w := p.table()
		for _, k := range keys {
			fmt.Fprintf(w, "%s:\t%s\n", k, adapter.FormatValue(v[k]))
		}
		return w.Flush()
	default:
		return p.structured(v)
	}
}

func (p *printer) rows(columns []string, rows []map[string]interface{}) error {
	if len(columns) == 0 {
		columns = adapter.ColumnsOf(rows)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(p.w, "(no rows)")
		return err
	}
	w := p.table()
	fmt.Fprintln(w, strings.ToUpper(strings.Join(columns, "\t")))
	cells := make([]string, len(columns))
	for _, row := range rows {
		for i, c := range columns {
			cells[i] = adapter.FormatValue(row[c])
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func (p *printer) structure(s *adapter.Structure) error {
	w := p.table()
	fmt.Fprintln(w, "COLUMN\tTYPE\tNULLABLE\tKEY\tDEFAULT")
	for _, c := range s.Columns {
		key := ""
		if c.PrimaryKey {
			key = "PK"
		}
		def := ""
		if c.Default != nil {
			def = *c.Default
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", c.Name, c.Type, c.Nullable, key, def)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(s.Indexes) > 0 {
		fmt.Fprintln(p.w)
		w = p.table()
		fmt.Fprintln(w, "INDEX\tCOLUMNS\tUNIQUE\tPRIMARY")
		for _, i := range s.Indexes {
			fmt.Fprintf(w, "%s\t%s\t%t\t%t\n", i.Name, strings.Join(i.Columns, ","), i.Unique, i.Primary)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if len(s.ForeignKeys) > 0 {
		fmt.Fprintln(p.w)
		w = p.table()
		fmt.Fprintln(w, "FOREIGN KEY\tCOLUMNS\tREFERENCES")
		for _, fk := range s.ForeignKeys {
			fmt.Fprintf(w, "%s\t%s\t%s(%s)\n", fk.Name, strings.Join(fk.Columns, ","),
				fk.ReferencedTable, strings.Join(fk.ReferencedColumns, ","))
		}
		return w.Flush()
	}
	return nil
}
