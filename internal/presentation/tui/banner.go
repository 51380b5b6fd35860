package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"  _   _ ___ ___ ___    __ _",
	" | | | / __/ __|   \\  / _| |_____ __ __",
	" | |_| \\__ \\__ \\ |) ||  _| / _ \\ V  V /",
	"  \\___/|___/___/___/ |_| |_\\___/\\_/\\_/",
}

var bannerColors = []string{"#fbbf24", "#f59e0b", "#d97706", "#b45309"}

// PrintBanner writes the ussdflow banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i])))
	}
	fmt.Fprintln(w, termenv.String("  "+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
