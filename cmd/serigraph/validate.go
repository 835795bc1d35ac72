package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/okanra/serigraph/loader"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema-file>",
		Short: "Validate a schema document without serializing",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	cmd.Flags().Bool("strict", false, "Treat warnings as errors")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	var l loader.Loader
	res, err := l.LoadFile(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	names := make([]string, 0, len(res.Schemas))
	for name := range res.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := res.Schemas[name]
		fmt.Fprintf(out, "%s: %d fields, %d relationships\n", name, len(s.Fields), len(s.Relationships))
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "warning [%s]: %s\n", w.Code, w.Message)
	}

	strict, _ := cmd.Flags().GetBool("strict")
	if strict && len(res.Warnings) > 0 {
		return fmt.Errorf("%d warnings with --strict", len(res.Warnings))
	}
	fmt.Fprintln(out, "OK")
	return nil
}
