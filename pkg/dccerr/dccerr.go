// Package dccerr is the error taxonomy of §7: a small Kind enumeration
// plus a separate formatter, replacing the original dcc's variadic
// dcc_error(fmt, ...) with a structured error-kind the core never
// formats itself.
package dccerr

import (
	"fmt"
	"os"
)

// Kind identifies one class of diagnostic.
type Kind int

const (
	Usage Kind = iota
	InvalidArg
	CannotOpen
	CannotRead
	ConfigCorrupt
	CompilerNotRecognised
	MainNotLocated
)

var messages = [...]string{
	Usage:                  "usage\n", // special-cased in Fatal below
	InvalidArg:             "invalid option -%c\n",
	CannotOpen:             "cannot open %s\n",
	CannotRead:             "error while reading %s\n",
	ConfigCorrupt:          "%s\n",
	CompilerNotRecognised:  "compiler not recognised\n",
	MainNotLocated:         "main could not be located\n",
}

// UsageLine is printed verbatim for the Usage kind, matching error.c's
// USAGE case.
const UsageLine = "Usage: dcc [-hvVsmiaA] [-f DOS_executable]\n"

// progName is prefixed to every non-usage diagnostic, mirroring the
// original's `%s: ` prefix built from the program's argv[0].
var progName = "dcc"

// SetProgName overrides the diagnostic prefix (defaults to "dcc").
func SetProgName(name string) { progName = name }

func format(k Kind, args ...any) string {
	if int(k) < 0 || int(k) >= len(messages) {
		return fmt.Sprintf("unknown diagnostic kind %d\n", k)
	}
	return fmt.Sprintf(messages[k], args...)
}

// Fatal prints a diagnostic to stderr and terminates the process,
// mirroring error.c's fatalError.
func Fatal(k Kind, args ...any) {
	if k == Usage {
		fmt.Fprint(os.Stderr, UsageLine)
	} else {
		fmt.Fprintf(os.Stderr, "%s: %s", progName, format(k, args...))
	}
	os.Exit(1)
}

// Warn prints a diagnostic to stderr and returns, mirroring error.c's
// reportError: the program continues with degraded behavior.
func Warn(k Kind, args ...any) {
	fmt.Fprintf(os.Stderr, "%s: %s", progName, format(k, args...))
}
