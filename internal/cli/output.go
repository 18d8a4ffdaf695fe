// Package cli provides the backtestopt command-line interface: serving the
// HTTP API, running one-off backtests and optimizer runs, and importing
// candle history.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Output handles formatted command output, switching between colored
// human-readable text and plain JSON depending on the --json flag.
type Output struct {
	writer   io.Writer
	jsonMode bool
}

// NewOutput builds an Output bound to cmd's stdout and --json flag.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &Output{writer: cmd.OutOrStdout(), jsonMode: jsonMode}
}

// IsJSON reports whether JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON writes data as indented JSON.
func (o *Output) JSON(data interface{}) error {
	enc := json.NewEncoder(o.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// Println writes a line.
func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

// Printf writes a formatted line.
func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Success writes a green confirmation line.
func (o *Output) Success(format string, args ...interface{}) {
	fmt.Fprintln(o.writer, color.GreenString(format, args...))
}

// Error writes a red error line.
func (o *Output) Error(format string, args ...interface{}) {
	fmt.Fprintln(o.writer, color.RedString(format, args...))
}

// Info writes a cyan informational line.
func (o *Output) Info(format string, args ...interface{}) {
	fmt.Fprintln(o.writer, color.CyanString(format, args...))
}
