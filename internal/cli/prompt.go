// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package cli

import (
	"bufio"
	"fmt"
	"strings"
)

// confirm asks question and reads one answer line. Only oui, o, yes and y
// (any case, surrounding spaces ignored) confirm; EOF refuses.
func (a *App) confirm(question string) bool {
	fmt.Fprintf(a.Out, "%s (oui/non): ", question)

	answer, err := a.reader().ReadString('\n')
	if err != nil && answer == "" {
		fmt.Fprintln(a.Out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "oui", "o", "yes", "y":
		return true
	default:
		return false
	}
}

// reader wraps In once so buffered input survives between two prompts.
func (a *App) reader() *bufio.Reader {
	if a.in == nil {
		a.in = bufio.NewReader(a.In)
	}
	return a.in
}
