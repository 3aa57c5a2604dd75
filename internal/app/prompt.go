package app

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"aide/internal/approval"
)

var approvalColor = color.New(color.FgYellow)

// terminalDecisionProvider asks the person at the terminal to approve or
// deny a tool call. EOF on stdin counts as a denial.
type terminalDecisionProvider struct {
	in *bufio.Reader
}

func (p *terminalDecisionProvider) Decide(ctx context.Context, req approval.Request) (approval.Decision, error) {
	fmt.Println()
	approvalColor.Printf("%s\n", req.Prompt)
	approvalColor.Printf("Allow? [y/n] ")

	for {
		if err := ctx.Err(); err != nil {
			return approval.Decision{Outcome: approval.TimedOut, Response: "context cancelled"}, nil
		}

		line, err := p.in.ReadString('\n')
		if err != nil {
			return approval.Decision{Outcome: approval.Denied, Response: "input closed"}, nil
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes", "approve":
			return approval.Decision{Outcome: approval.Approved, Response: "approved at terminal"}, nil
		case "n", "no", "deny":
			return approval.Decision{Outcome: approval.Denied, Response: "denied at terminal"}, nil
		default:
			approvalColor.Printf("Type 'y' or 'n': ")
		}
	}
}
