package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/okanra/serigraph/engine"
	"github.com/okanra/serigraph/loader"
	"github.com/okanra/serigraph/schema"
	"github.com/okanra/serigraph/within"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <schema-file>",
		Short: "Serialize JSON input through a schema document",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}

	cmd.Flags().StringP("schema", "s", "", "Schema name (required when the document declares several)")
	cmd.Flags().StringP("input", "i", "", "Input record as inline JSON")
	cmd.Flags().StringP("input-file", "f", "", "Read input JSON from file (default: stdin)")
	cmd.Flags().StringP("output", "o", "", "Write output to file (default: stdout)")
	cmd.Flags().Bool("ndjson", false, "Treat input as newline-delimited JSON, one record per line")
	cmd.Flags().Bool("pretty", false, "Indent JSON output")
	cmd.Flags().String("within", "", "Relationship selection, e.g. '{ comments { author } }'")
	cmd.Flags().Int("max-depth", 0, "Recursion depth ceiling (0 = engine default)")
	cmd.Flags().String("root", "", "Wrap output under this root key")
	cmd.Flags().Bool("camelize", false, "Rewrite output keys to lowerCamelCase")
	cmd.Flags().Int("page", 0, "Pagination: current page")
	cmd.Flags().Int("per-page", 0, "Pagination: records per page")
	cmd.Flags().Int("total", 0, "Pagination: total record count")
	cmd.Flags().Int("parallel-threshold", 0, "Relationship count triggering concurrent resolution (0 = engine default)")
	cmd.Flags().Duration("timeout", 0, "Per-relationship timeout for concurrent resolution (0 = engine default)")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	s, err := pickSchema(cmd, args[0])
	if err != nil {
		return err
	}

	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		spew.Fdump(cmd.ErrOrStderr(), opts)
	}

	out, err := openOutput(cmd)
	if err != nil {
		return err
	}
	defer out.close()

	if ndjson, _ := cmd.Flags().GetBool("ndjson"); ndjson {
		return runNDJSON(cmd, s, opts, out.w)
	}

	input, err := readInput(cmd)
	if err != nil {
		return err
	}
	result, err := engine.Serialize(cmd.Context(), s, input, opts)
	if err != nil {
		return fmt.Errorf("serializing: %w", err)
	}
	return writeJSON(cmd, out.w, result)
}

// runNDJSON serializes one record per input line and emits one JSON line per
// record, so large inputs stream without buffering.
func runNDJSON(cmd *cobra.Command, s *schema.Schema, opts engine.Options, w io.Writer) error {
	in, closeIn, err := openInput(cmd)
	if err != nil {
		return err
	}
	defer closeIn()

	enc := json.NewEncoder(w)
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var record any
		if err := json.Unmarshal(sc.Bytes(), &record); err != nil {
			return fmt.Errorf("parsing input line %d: %w", line, err)
		}
		result, err := engine.Serialize(cmd.Context(), s, record, opts)
		if err != nil {
			return fmt.Errorf("serializing line %d: %w", line, err)
		}
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	return sc.Err()
}

func pickSchema(cmd *cobra.Command, path string) (*schema.Schema, error) {
	var l loader.Loader
	res, err := l.LoadFile(path)
	if err != nil {
		return nil, err
	}
	name, _ := cmd.Flags().GetString("schema")
	if name != "" {
		s, ok := res.Schemas[name]
		if !ok {
			return nil, fmt.Errorf("schema %q not found in %s", name, path)
		}
		return s, nil
	}
	if len(res.Schemas) == 1 {
		for _, s := range res.Schemas {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%s declares %d schemas; pick one with --schema", path, len(res.Schemas))
}

func buildOptions(cmd *cobra.Command) (engine.Options, error) {
	var opts engine.Options

	if sel, _ := cmd.Flags().GetString("within"); sel != "" {
		tree, err := within.ParseSelection(sel)
		if err != nil {
			return opts, fmt.Errorf("parsing --within: %w", err)
		}
		opts.Within = tree
	}
	opts.MaxDepth, _ = cmd.Flags().GetInt("max-depth")
	opts.Root, _ = cmd.Flags().GetString("root")
	opts.Camelize, _ = cmd.Flags().GetBool("camelize")
	opts.ParallelThreshold, _ = cmd.Flags().GetInt("parallel-threshold")
	opts.RelationshipTimeout, _ = cmd.Flags().GetDuration("timeout")

	page, _ := cmd.Flags().GetInt("page")
	perPage, _ := cmd.Flags().GetInt("per-page")
	total, _ := cmd.Flags().GetInt("total")
	if page > 0 || perPage > 0 || total > 0 {
		opts.Pagination = &engine.Pagination{Page: page, PerPage: perPage, Total: total}
	}
	return opts, nil
}

func readInput(cmd *cobra.Command) (any, error) {
	if inline, _ := cmd.Flags().GetString("input"); inline != "" {
		var v any
		if err := json.Unmarshal([]byte(inline), &v); err != nil {
			return nil, fmt.Errorf("parsing --input: %w", err)
		}
		return v, nil
	}
	in, closeIn, err := openInput(cmd)
	if err != nil {
		return nil, err
	}
	defer closeIn()
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	return v, nil
}

func openInput(cmd *cobra.Command) (io.Reader, func(), error) {
	path, _ := cmd.Flags().GetString("input-file")
	if path == "" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

type output struct {
	w     io.Writer
	close func()
}

func openOutput(cmd *cobra.Command) (*output, error) {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return &output{w: cmd.OutOrStdout(), close: func() {}}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	return &output{w: f, close: func() { f.Close() }}, nil
}

func writeJSON(cmd *cobra.Command, w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
