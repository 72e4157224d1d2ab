package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "run":
		return runPipeline(args[1:])
	case "allocate":
		return runAllocate(args[1:])
	case "sync":
		return runSync(args[1:])
	case "health":
		return runHealth(args[1:])
	case "stats":
		return runStats(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "benchscope CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  benchscope <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run       Run the full curation pipeline over a candidates file")
	fmt.Fprintln(os.Stderr, "  allocate  Dry-run the push allocator over scored candidates")
	fmt.Fprintln(os.Stderr, "  sync      Replay unsynced fallback rows into the primary sink")
	fmt.Fprintln(os.Stderr, "  health    Verify sink, cache, and fallback store connectivity")
	fmt.Fprintln(os.Stderr, "  stats     Show fallback store occupancy")
	fmt.Fprintln(os.Stderr, "  serve     Start the read-only API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"benchscope <command> -h\" for command-specific flags.")
}
