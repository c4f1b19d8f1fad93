package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// render prints v as JSON under --json, or as a table drawn by table.
func render(cmd *cobra.Command, v any, table func(w io.Writer)) error {
	if flags.jsonMode {
		return printJSON(cmd, v)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

// report prints v as JSON under --json, or the formatted message otherwise.
func report(cmd *cobra.Command, v any, format string, args ...any) error {
	if flags.jsonMode {
		return printJSON(cmd, v)
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
	return err
}

// confirm asks a yes/no question on stderr and reads the answer from stdin.
// yes answers it up front.
func confirm(cmd *cobra.Command, yes bool, question string) (bool, error) {
	if yes {
		return true, nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "si", "sí":
		return true, nil
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
	return false, nil
}

// parseFloats parses coordinate arguments.
func parseFloats(args ...string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", types.ErrValidation, a)
		}
		out[i] = f
	}
	return out, nil
}
