package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/ssrworker/internal/app"
	"github.com/aatumaykin/ssrworker/internal/processing"
	"github.com/aatumaykin/ssrworker/internal/protocol"
)

var (
	parseLimit int

	transformView      string
	transformReference string

	filterWhere []string
	filterIn    []string
	filterRegex []string
	filterGT    []string
	filterLT    []string
	filterSort  string
	filterLimit int
)

// parseCmd decodes an Arrow file and prints its records
var parseCmd = &cobra.Command{
	Use:   "parse <arrow-file>",
	Short: "Decode an Arrow IPC file into records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProcessor(cmd, func(ctx context.Context, p *processing.Processor) (any, error) {
			records, err := readRecords(ctx, p, args[0])
			if err != nil {
				return nil, err
			}
			return limit(records, parseLimit), nil
		})
	},
}

// transformCmd builds a chart view from an Arrow file
var transformCmd = &cobra.Command{
	Use:   "transform <arrow-file>",
	Short: "Build a named view from an Arrow IPC file",
	Long: `Decode the file and run one view over its records.
Use the views command to list the available names.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProcessor(cmd, func(ctx context.Context, p *processing.Processor) (any, error) {
			records, err := readRecords(ctx, p, args[0])
			if err != nil {
				return nil, err
			}
			return p.Transform(ctx, records, transformView, transformReference)
		})
	},
}

// filterCmd filters and sorts the records of an Arrow file
var filterCmd = &cobra.Command{
	Use:   "filter <arrow-file>",
	Short: "Filter and sort the records of an Arrow IPC file",
	Long: `Decode the file, keep the records matching every predicate and sort them.

  --where col=value   case-insensitive substring, or equality for numbers
  --in col=a,b,c      membership
  --regex col=expr    RE2 match
  --gt col=n, --lt col=n  numeric bounds
  --sort col:asc|desc`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		predicates, err := buildPredicates()
		if err != nil {
			return err
		}
		return withProcessor(cmd, func(ctx context.Context, p *processing.Processor) (any, error) {
			records, err := readRecords(ctx, p, args[0])
			if err != nil {
				return nil, err
			}
			out, err := p.Filter(ctx, records, predicates, filterSort)
			if err != nil {
				return nil, err
			}
			return limit(out, filterLimit), nil
		})
	},
}

func init() {
	parseCmd.Flags().IntVar(&parseLimit, "limit", 0, "print at most n records (0 = all)")

	transformCmd.Flags().StringVar(&transformView, "view", "", "view name")
	transformCmd.Flags().StringVar(&transformReference, "reference", "", "reference genome id for comparison views")
	_ = transformCmd.MarkFlagRequired("view")

	filterCmd.Flags().StringArrayVar(&filterWhere, "where", nil, "col=value predicate (repeatable)")
	filterCmd.Flags().StringArrayVar(&filterIn, "in", nil, "col=a,b,c membership predicate (repeatable)")
	filterCmd.Flags().StringArrayVar(&filterRegex, "regex", nil, "col=expr regular expression predicate (repeatable)")
	filterCmd.Flags().StringArrayVar(&filterGT, "gt", nil, "col=n lower bound, exclusive (repeatable)")
	filterCmd.Flags().StringArrayVar(&filterLT, "lt", nil, "col=n upper bound, exclusive (repeatable)")
	filterCmd.Flags().StringVar(&filterSort, "sort", "", "sort spec, column:asc or column:desc")
	filterCmd.Flags().IntVar(&filterLimit, "limit", 0, "print at most n records (0 = all)")
}

// withProcessor runs fn on a processor backed by a fresh pool and prints
// the value it returns.
func withProcessor(cmd *cobra.Command, fn func(ctx context.Context, p *processing.Processor) (any, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()

	a := app.New(cfg, log)
	defer func() { _ = a.Shutdown() }()

	proc, err := a.NewProcessor()
	if err != nil {
		return err
	}

	value, err := fn(cmd.Context(), proc)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), value)
}

func readRecords(ctx context.Context, p *processing.Processor, path string) ([]protocol.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := p.ParseBuffer(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}

func limit(records []protocol.Record, n int) []protocol.Record {
	if records == nil {
		return []protocol.Record{}
	}
	if n > 0 && len(records) > n {
		return records[:n]
	}
	return records
}

// buildPredicates turns the filter flags into a predicate map. Operator
// flags on the same column are combined into one operator map.
func buildPredicates() (map[string]any, error) {
	predicates := make(map[string]any)
	operators := make(map[string]map[string]any)

	addOp := func(col, op string, v any) {
		if operators[col] == nil {
			operators[col] = make(map[string]any)
		}
		operators[col][op] = v
	}

	for _, expr := range filterWhere {
		col, value, err := splitPredicate(expr, "--where")
		if err != nil {
			return nil, err
		}
		predicates[col] = scalar(value)
	}

	for _, expr := range filterIn {
		col, value, err := splitPredicate(expr, "--in")
		if err != nil {
			return nil, err
		}
		parts := strings.Split(value, ",")
		members := make([]any, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				members = append(members, scalar(part))
			}
		}
		predicates[col] = members
	}

	for _, expr := range filterRegex {
		col, value, err := splitPredicate(expr, "--regex")
		if err != nil {
			return nil, err
		}
		addOp(col, "$regex", value)
	}

	bounds := []struct {
		flag  string
		op    string
		exprs []string
	}{
		{"--gt", "$gt", filterGT},
		{"--lt", "$lt", filterLT},
	}
	for _, b := range bounds {
		for _, expr := range b.exprs {
			col, value, err := splitPredicate(expr, b.flag)
			if err != nil {
				return nil, err
			}
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %q is not a number", b.flag, col, value)
			}
			addOp(col, b.op, n)
		}
	}

	for col, ops := range operators {
		if _, dup := predicates[col]; dup {
			return nil, fmt.Errorf("column %q has both a value and an operator predicate", col)
		}
		predicates[col] = ops
	}

	if len(predicates) == 0 {
		return nil, nil
	}
	return predicates, nil
}

func splitPredicate(expr, flag string) (string, string, error) {
	col, value, ok := strings.Cut(expr, "=")
	col = strings.TrimSpace(col)
	if !ok || col == "" {
		return "", "", fmt.Errorf("%s %q: expected column=value", flag, expr)
	}
	return col, value, nil
}

// scalar keeps numbers numeric so they compare by value.
func scalar(s string) any {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}
