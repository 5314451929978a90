package main

import (
	"encoding/json"
	"io"
	"slices"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	formatText = "text"
	formatJSON = "json"
)

func addFormatFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVar(format, "format", formatText, "Output format: text or json")
}

func checkFormat(format string) error {
	if !slices.Contains([]string{formatText, formatJSON}, format) {
		return errors.Errorf("invalid --format %q, valid values are %q and %q", format, formatText, formatJSON)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "failed to write JSON output")
}

// shorten returns text truncated to maxRunes, for titles.
func shorten(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes-1]) + "…"
}
