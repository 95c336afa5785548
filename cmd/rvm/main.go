// Command rvm assembles and runs programs for the stack-oriented
// bytecode machine implemented in rvm/internal/vm.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
