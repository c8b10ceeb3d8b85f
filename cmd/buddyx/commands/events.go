package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/0xfe/buddyx/internal/runtime"
)

// printEvent renders one runtime.Envelope as plain text the way the REPL
// and exec mode both want to see task/tool progress.
func printEvent(env runtime.Envelope) {
	ev := env.Event
	switch ev.Family {
	case runtime.FamilyTask:
		switch ev.Name {
		case "Started":
			fmt.Println("...")
		case "Completed":
			if text, ok := ev.Data["text"].(string); ok {
				fmt.Println(text)
			}
		case "Failed":
			fmt.Fprintf(os.Stderr, "task failed: %v\n", ev.Data["message"])
		case "Cancelled":
			fmt.Println("(cancelled)")
		}
	case runtime.FamilyModel:
		if ev.Name == "ReasoningDelta" {
			if text, ok := ev.Data["text"].(string); ok {
				fmt.Print(text)
			}
		}
	case runtime.FamilyTool:
		switch ev.Name {
		case "CallRequested":
			fmt.Printf("[tool] %v\n", ev.Data["name"])
		case "Result":
			if toolErr, ok := ev.Data["error"]; ok && toolErr != nil {
				fmt.Printf("[tool error] %v\n", toolErr)
			}
		}
	case runtime.FamilyWarning:
		fmt.Fprintf(os.Stderr, "warning: %s\n", ev.Name)
	case runtime.FamilyError:
		detail := ev.Data["error"]
		if detail == nil {
			detail = ev.Data["message"]
		}
		fmt.Fprintf(os.Stderr, "error: %s: %v\n", ev.Name, detail)
	}
}

// approvalPrompter answers a WaitingApproval event with a decision.
type approvalPrompter func(summary string) bool

// interactiveApprove asks on stdin with a yes/no confirmation prompt.
func interactiveApprove(summary string) bool {
	fmt.Printf("approve %q? [y/N] ", summary)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}

// runEventLoop drains rt.Events() until the channel closes, printing each
// envelope and resolving WaitingApproval tasks through approve. onTaskDone,
// if non-nil, fires once per task after a terminal task event so a caller
// driving one prompt at a time (the REPL) knows when to read the next line.
// Returns once the events channel is closed (after a Shutdown command is
// processed).
func runEventLoop(rt *runtime.Runtime, approve approvalPrompter, onTaskDone func()) {
	for env := range rt.Events() {
		printEvent(env)
		ev := env.Event
		if ev.Family == runtime.FamilyTask {
			switch ev.Name {
			case "WaitingApproval":
				id, ok := ev.Data["approval_id"].(runtime.ApprovalID)
				if !ok {
					s, _ := ev.Data["approval_id"].(string)
					id = runtime.ApprovalID(s)
				}
				summary, _ := ev.Data["summary"].(string)
				decision := approve(summary)
				rt.Submit(runtime.Approve(id, decision))
			case "Completed", "Failed", "Cancelled":
				if onTaskDone != nil {
					onTaskDone()
				}
			}
		}
	}
}
