package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	prompt "github.com/c-bata/go-prompt"

	"rvm/internal/vm"
)

// runDebugger re-hosts the teacher's single-step loop (n/next, r/run,
// b/break <line>) on go-prompt, with a stack command added on top.
func runDebugger(ctx context.Context, interp *vm.Interpreter) (int32, error) {
	breakpoints := map[int]bool{}
	completer := func(d prompt.Document) []prompt.Suggest {
		suggestions := []prompt.Suggest{
			{Text: "next", Description: "execute one instruction"},
			{Text: "run", Description: "run until halt or breakpoint"},
			{Text: "break", Description: "break <index>: set a breakpoint"},
			{Text: "stack", Description: "print the data stack"},
			{Text: "quit", Description: "stop debugging"},
		}
		return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
	}

	for {
		if interp.Halted() {
			return interp.ExitCode(), nil
		}

		fmt.Printf("next: %s (ip=%d)\n", interp.CurrentOpName(), interp.IP())
		line := prompt.Input("(rvm-debug) ", completer)
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "n", "next":
			if err := interp.Step(ctx); err != nil {
				return 0, err
			}
		case "r", "run":
			for !interp.Halted() {
				if err := interp.Step(ctx); err != nil {
					return 0, err
				}
				if breakpoints[interp.IP()] {
					break
				}
			}
		case "b", "break":
			if len(fields) < 2 {
				fmt.Fprintln(os.Stderr, "usage: break <code-index>")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Fprintln(os.Stderr, "usage: break <code-index>")
				continue
			}
			breakpoints[n] = true
		case "stack":
			fmt.Println(interp.StackSnapshot())
		case "quit", "q":
			return 0, nil
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q (next/run/break/stack/quit)\n", fields[0])
		}
	}
}
