package main

import (
	"fmt"
	"os"
)

// Exit codes. Invalid configuration, store corruption and cryptographic
// self-test failure are distinguishable to supervisors.
const (
	exitCodeOK            = 0
	exitCodeInvalidConfig = 1
	exitCodeStoreFailure  = 2
	exitCodeCryptoFailure = 3
)

func main() {
	// Call xdagdMain in a nested manner so defers behave as expected when
	// the process exits with a code.
	exitCode := xdagdMain()
	if exitCode != exitCodeOK {
		os.Exit(exitCode)
	}
}

// fatalf prints an error to stderr; logging may not be up yet when it is
// called.
func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
