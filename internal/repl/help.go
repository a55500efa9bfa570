// =============================================================================
// help.go - Help System
// =============================================================================
//
//   - ".help"          lists dot-commands and tools
//   - ".help <topic>"  shows details for a dot-command or a tool
//
// Tool help is generated from the dispatcher's tool descriptions so it
// cannot drift from what the dispatcher accepts.
//
// =============================================================================

package repl

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chienchuanw/gma2-mcp/internal/tools"
)

var dotHelp = map[string]string{
	"help": `.help [topic]
    Show all commands, or details for one dot-command or tool.
    Examples: .help   .help state   .help execute_sequence`,

	"quit": `.quit
    Leave the REPL. Ctrl-D does the same.`,

	"state": `.state
    Show the session state and the console address.`,

	"transcript": `.transcript [n]
    Show the last n lines of wire traffic (default 20). Passwords are
    never recorded.`,

	"tools": `.tools
    List the tools that can be called with ':'.`,
}

// printHelp writes the overview when topic is empty, or details for topic.
func printHelp(w io.Writer, list []tools.Tool, topic string) {
	topic = strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(topic)), "."), ":")
	if topic == "" {
		printHelpOverview(w, list)
		return
	}

	if text, ok := dotHelp[topic]; ok {
		fmt.Fprintln(w, text)
		return
	}
	for _, t := range list {
		if t.Name == topic {
			printToolHelp(w, t)
			return
		}
	}
	fmt.Fprintf(w, "No help for '%s'. Type .help for a list of commands.\n", topic)
}

func printHelpOverview(w io.Writer, list []tools.Tool) {
	fmt.Fprintln(w, "Dot-commands:")
	names := make([]string, 0, len(dotHelp))
	for name := range dotHelp {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		first, _, _ := strings.Cut(dotHelp[name], "\n")
		fmt.Fprintf(w, "  %s\n", first)
	}

	fmt.Fprintln(w)
	printToolList(w, list)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Anything else is sent to the console as a command line, e.g.")
	fmt.Fprintln(w, "  Fixture 1 Thru 10")
	fmt.Fprintln(w, "  Go Executor 1")
}

func printToolList(w io.Writer, list []tools.Tool) {
	fmt.Fprintln(w, "Tools (call as :name key=value ...):")
	for _, t := range list {
		fmt.Fprintf(w, "  :%-22s %s\n", t.Name, t.Help)
	}
}

func printToolHelp(w io.Writer, t tools.Tool) {
	var usage strings.Builder
	usage.WriteString(":" + t.Name)
	for _, p := range t.Params {
		if p.Required {
			fmt.Fprintf(&usage, " %s=<%s>", p.Name, p.Type)
		} else {
			fmt.Fprintf(&usage, " [%s=<%s>]", p.Name, p.Type)
		}
	}
	fmt.Fprintln(w, usage.String())
	fmt.Fprintf(w, "    %s\n", t.Help)
	for _, p := range t.Params {
		fmt.Fprintf(w, "    %-15s %s\n", p.Name, p.Help)
	}
}
