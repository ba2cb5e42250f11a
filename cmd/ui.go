package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
)

// stdout is swapped by tests.
var stdout io.Writer = os.Stdout

func okf(format string, a ...any) {
	okColor.Fprintf(stdout, format+"\n", a...)
}

func warn(format string, a ...any) {
	warnColor.Fprintf(os.Stderr, format+"\n", a...)
}

func fail(format string, a ...any) {
	errColor.Fprintf(os.Stderr, format+"\n", a...)
}

func printf(format string, a ...any) {
	fmt.Fprintf(stdout, format, a...)
}
