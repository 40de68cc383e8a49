package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Banner is printed by long-running commands
const Banner = `
  ┌─┐┬ ┬┬─┐┬┌─┐┬ ┬┌─┐┌─┐ ┌─┐
  │  │ │├┬┘││ ││ │└─┐│─┼┐├─┤
  └─┘└─┘┴└─┴└─┘└─┘└─┘└─┘└┴ ┴
  CuriousCat question & answer export
`

var (
	mu      sync.Mutex
	out     io.Writer = os.Stdout
	colored           = os.Getenv("NO_COLOR") == ""
)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(format string) func(string) string {
	return func(text string) string {
		mu.Lock()
		on := colored
		mu.Unlock()
		if !on {
			return text
		}
		return fmt.Sprintf(format, text)
	}
}

// SetOutput redirects every Print helper to w
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetColor turns ANSI colors on or off
func SetColor(on bool) {
	mu.Lock()
	defer mu.Unlock()
	colored = on
}

func writeLine(s string) {
	mu.Lock()
	w := out
	mu.Unlock()
	fmt.Fprintln(w, s)
}

// PrintBanner prints the banner
func PrintBanner() {
	writeLine(Cyan(Banner))
}

// PrintError prints msg in red, followed by detail when given
func PrintError(msg string, detail ...interface{}) {
	if len(detail) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, detail[0])
	}
	writeLine(Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	writeLine(Green(msg))
}

// PrintInfo prints a label and value pair
func PrintInfo(label string, value string) {
	writeLine(fmt.Sprintf("%s: %s", Cyan(label), Yellow(value)))
}

// PrintWarning prints msg in yellow, followed by detail when given
func PrintWarning(msg string, detail ...interface{}) {
	if len(detail) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, detail[0])
	}
	writeLine(Yellow(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	writeLine(Magenta(msg))
}
