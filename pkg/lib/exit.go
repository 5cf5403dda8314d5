package lib

import (
	"fmt"
	"os"
)

// Exit prints the error and exits the program with code, letting the
// caller choose a severity/result-aware code instead of always exiting 1.
func Exit(err error, code int) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(code)
}
