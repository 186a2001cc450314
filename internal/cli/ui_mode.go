package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// UI modes accepted by --ui.
const (
	uiAuto  = "auto"
	uiLive  = "live"
	uiPlain = "plain"
)

// progressMode says how batch progress is rendered.
type progressMode struct {
	live    bool
	warning string
}

// isTerminal reports whether a writer is a TTY.
var isTerminal = writerIsTerminal

// resolveUIMode picks live or plain progress output. JSON logs force plain
// output so log lines are not drawn over.
func resolveUIMode(mode string, jsonLogs bool, stdout io.Writer) (progressMode, error) {
	normalized := strings.ToLower(strings.TrimSpace(mode))
	if normalized == "" {
		normalized = uiAuto
	}
	switch normalized {
	case uiAuto:
		return progressMode{live: !jsonLogs && isTerminal(stdout)}, nil
	case uiLive:
		if jsonLogs {
			return progressMode{warning: "live UI is disabled with --log-format json; using plain output"}, nil
		}
		if !isTerminal(stdout) {
			return progressMode{warning: "live UI needs a terminal; using plain output"}, nil
		}
		return progressMode{live: true}, nil
	case uiPlain:
		return progressMode{}, nil
	}
	return progressMode{}, usageErrorf("invalid --ui %q (expected %s|%s|%s)", mode, uiAuto, uiLive, uiPlain)
}

func writerIsTerminal(w io.Writer) bool {
	switch typed := w.(type) {
	case *os.File:
		return term.IsTerminal(int(typed.Fd()))
	case interface{ Fd() uintptr }:
		return term.IsTerminal(int(typed.Fd()))
	}
	return false
}

// usageError marks errors caused by bad command-line input.
type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}
