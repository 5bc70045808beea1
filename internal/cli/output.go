// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
)

// fatih/color drops the escapes when stdout is not a TTY or NO_COLOR is set.
var (
	red    = color.New(color.FgHiRed)
	green  = color.New(color.FgHiGreen)
	yellow = color.New(color.FgHiYellow)
	blue   = color.New(color.FgHiBlue)
)

const detailsRuleWidth = 60

func (a *App) printError(msg string) {
	_, _ = red.Fprintf(a.Err, "❌ Erreur: %s\n", msg)
}

func (a *App) printSuccess(format string, args ...any) {
	_, _ = green.Fprintf(a.Out, "✅ "+format+"\n", args...)
}

func (a *App) printWarning(format string, args ...any) {
	_, _ = yellow.Fprintf(a.Out, "⚠️  "+format+"\n", args...)
}

func (a *App) printInfo(format string, args ...any) {
	_, _ = blue.Fprintf(a.Out, "ℹ️  "+format+"\n", args...)
}

// printJSON writes v indented, without escaping non-ASCII or HTML characters.
func printJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// serverRow is one line of the list table.
type serverRow struct {
	name, id, status string
}

func rowOf(rec map[string]any) serverRow {
	return serverRow{
		name:   firstText(rec, "N/A", "name", "label"),
		id:     firstText(rec, "N/A", "id"),
		status: firstText(rec, "unknown", "status", "power"),
	}
}

// firstText returns the first present key rendered as text, else fallback.
func firstText(rec map[string]any, fallback string, keys ...string) string {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return scalarText(v)
		}
	}
	return fallback
}

func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func statusColor(status string) *color.Color {
	switch strings.ToLower(status) {
	case "running", "started":
		return green
	case "stopped":
		return red
	default:
		return yellow
	}
}

// printServerTable renders Nom / ID / Statut columns. Widths are the longest
// value with minimums of 10, 15 and 10 runes.
func (a *App) printServerTable(records []map[string]any) {
	if len(records) == 0 {
		a.printWarning("Aucun serveur trouvé")
		return
	}

	rows := make([]serverRow, len(records))
	nameWidth, idWidth, statusWidth := 10, 15, 10
	for i, rec := range records {
		rows[i] = rowOf(rec)
		nameWidth = max(nameWidth, utf8.RuneCountInString(rows[i].name))
		idWidth = max(idWidth, utf8.RuneCountInString(rows[i].id))
		statusWidth = max(statusWidth, utf8.RuneCountInString(rows[i].status))
	}
	rule := strings.Repeat("=", nameWidth+idWidth+statusWidth+10)

	w := bufio.NewWriter(a.Out)
	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "%-*s | %-*s | %-*s\n", nameWidth, "Nom", idWidth, "ID", statusWidth, "Statut")
	fmt.Fprintln(w, rule)
	for _, row := range rows {
		fmt.Fprintf(w, "%-*s | %-*s | %s\n", nameWidth, row.name, idWidth, row.id, statusColor(row.status).Sprint(row.status))
	}
	fmt.Fprintf(w, "%s\n\n", rule)
	_ = w.Flush()
}

// printServerDetails renders one record as sorted key: value lines. Nested
// objects and lists are JSON-indented.
func (a *App) printServerDetails(server any) {
	rule := strings.Repeat("=", detailsRuleWidth)

	w := bufio.NewWriter(a.Out)
	fmt.Fprintf(w, "\n%s\nDÉTAILS DU SERVEUR\n%s\n", rule, rule)

	switch rec := server.(type) {
	case map[string]any:
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s: %s\n", k, detailValue(rec[k]))
		}
	case nil:
	default:
		fmt.Fprintln(w, detailValue(rec))
	}

	fmt.Fprintf(w, "%s\n\n", rule)
	_ = w.Flush()
}

func detailValue(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		var buf bytes.Buffer
		if err := printJSON(&buf, v); err != nil {
			return fmt.Sprint(v)
		}
		return strings.TrimRight(buf.String(), "\n")
	default:
		return scalarText(v)
	}
}
