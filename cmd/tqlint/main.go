// Command tqlint checks a network config file and reports problems.
//
//	tqlint network.yaml
//
// It prints PASS when the network is clean and exits with status 1 when
// any error-level issue is found.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	_ "time/tzdata"

	"trainquery/internal/config"
	"trainquery/internal/network"
	"trainquery/internal/timetable"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: tqlint [network.yaml]\n")
	}
	flag.Parse()

	path := "network.yaml"
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	os.Exit(run(path, os.Stdout))
}

// run lints the network at path and returns the process exit code.
func run(path string, out io.Writer) int {
	net, err := config.LoadNetwork(path)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return 1
	}

	issues := net.Validate()
	if _, err := timetable.FromStatic(net); err != nil {
		issues = append(issues, network.Issue{Severity: network.SeverityError, Message: err.Error()})
	}
	if len(issues) == 0 {
		fmt.Fprintln(out, "PASS")
		return 0
	}
	for _, issue := range issues {
		fmt.Fprintln(out, issue)
	}
	if network.HasErrors(issues) {
		return 1
	}
	return 0
}
