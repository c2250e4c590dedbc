package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// infof prints a message with an "Info: " prefix.
func infof(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprint(w, color.New(color.Bold, color.FgCyan).Sprint("Info: "))
	printf(w, format, a...)
}

// warningf prints a message with a "Warning: " prefix.
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprint(w, color.New(color.Bold, color.FgYellow).Sprint("Warning: "))
	printf(w, format, a...)
}

// successf prints a message with a green check mark.
func successf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprint(w, color.GreenString("✔ "))
	printf(w, format, a...)
}

// errorf returns an error for the user, prefixed with a red "Error: ".
func errorf(format string, a ...interface{}) error {
	return errors.Errorf(color.RedString("Error: ")+format, a...)
}
