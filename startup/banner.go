// Package startup prints the terminal banner shown when the server starts.
package startup

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"golang.org/x/term"
)

const (
	reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"
	cyan  = "\033[36m"
	green = "\033[32m"
	white = "\033[37m"

	indent = "    "
)

type BannerOptions struct {
	Version      string
	LocalURL     string
	PublicURL    string // Empty when share links are derived per request
	DocumentsDir string
	SessionTTL   string
}

// Banner writes the startup screen. Colors are used only on a terminal.
type Banner struct {
	w      io.Writer
	colors bool
}

// New returns a banner for w. Colors follow NO_COLOR and whether w is a terminal.
func New(w io.Writer) *Banner {
	colors := false
	if f, ok := w.(*os.File); ok && os.Getenv("NO_COLOR") == "" {
		colors = term.IsTerminal(int(f.Fd()))
	}
	return &Banner{w: w, colors: colors}
}

func (b *Banner) color(code, text string) string {
	if !b.colors {
		return text
	}
	return code + text + reset
}

func (b *Banner) Print(opts BannerOptions) {
	fmt.Fprintln(b.w)

	logo := b.color(cyan, "✎") + "  " + b.color(bold+white, "N O T E P A D")
	fmt.Fprintf(b.w, "%s%s%s%s\n", indent, logo, strings.Repeat(" ", 30), b.color(dim, opts.Version))
	fmt.Fprintln(b.w)

	fmt.Fprintf(b.w, "%s%s   %s\n", indent, b.color(dim, "▸ Local"), b.color(green, opts.LocalURL))
	if opts.PublicURL != "" {
		fmt.Fprintf(b.w, "%s%s  %s\n", indent, b.color(dim, "▸ Public"), b.color(green, opts.PublicURL))
	}
	if opts.DocumentsDir != "" {
		fmt.Fprintf(b.w, "%s%s    %s\n", indent, b.color(dim, "▸ Docs"), opts.DocumentsDir)
	}
	if opts.SessionTTL != "" {
		fmt.Fprintf(b.w, "%s%s  %s\n", indent, b.color(dim, "▸ Expiry"), opts.SessionTTL)
	}

	fmt.Fprintln(b.w)
}

// PrintQRCode prints an indented QR code with a label on the side.
func (b *Banner) PrintQRCode(url string) {
	var buf bytes.Buffer
	qrterminal.GenerateWithConfig(url, qrterminal.Config{
		Level:          qrterminal.L,
		Writer:         &buf,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
		QuietZone:      1,
	})

	var lines []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}

	midLine := len(lines) / 2
	for i, line := range lines {
		if i == midLine {
			fmt.Fprintf(b.w, "%s%s  %s\n", indent, line, b.color(dim, "Scan to open"))
		} else {
			fmt.Fprintf(b.w, "%s%s\n", indent, line)
		}
	}
	fmt.Fprintln(b.w)
}

func (b *Banner) PrintFooter() {
	fmt.Fprintf(b.w, "%s%s\n", indent, b.color(dim, "Press Ctrl+C to stop"))
	fmt.Fprintln(b.w)
}
