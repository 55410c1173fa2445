package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"csuassist/cmd/csu-cli/globals"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// Check exits with the error printed to stderr when err is not nil.
func Check(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// Print writes value as indented json when --json was passed, otherwise it
// calls render.
func Print(cmd *cobra.Command, value any, render func()) {
	if !globals.Get(cmd.Context()).Json {
		render()
		return
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	Check(encoder.Encode(value))
}

func Join(values []string) string {
	return strings.Join(values, ", ")
}

func Yuan(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
