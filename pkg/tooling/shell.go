package tooling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
)

const (
	shellTimeout     = 30 * time.Second
	shellOutputLimit = 2000
)

// safeCommands may redirect output; everything else is refused a redirect.
var safeCommands = map[string]bool{
	"ls": true, "pwd": true, "whoami": true, "date": true, "uptime": true,
	"hostname": true, "cat": true, "head": true, "tail": true, "wc": true,
	"grep": true, "find": true, "which": true, "echo": true, "printf": true,
	"df": true, "free": true, "uname": true,
}

// blockedCommands are never executed, directly or behind a pipe.
var blockedCommands = map[string]bool{
	"rm": true, "rmdir": true, "dd": true, "mkfs": true, "fdisk": true,
	"mount": true, "umount": true,
	"shutdown": true, "reboot": true, "poweroff": true, "halt": true, "init": true,
	"passwd": true, "useradd": true, "userdel": true, "usermod": true, "groupadd": true,
	"chmod": true, "chown": true, "chgrp": true,
	"curl": true, "wget": true,
	"sudo": true, "su": true, "doas": true,
}

// checkShellCommand applies the textual allow/block policy and returns a
// rejection reason, or "" when the command may run. This is a soft guard
// against obviously destructive commands, not a sandbox: it does not parse
// shell grammar.
func checkShellCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "Empty command"
	}

	name := fields[0]
	if blockedCommands[name] {
		return fmt.Sprintf("Command '%s' is blocked for safety reasons", name)
	}

	if strings.Contains(command, "|") {
		segments := strings.Split(command, "|")
		for _, segment := range segments[1:] {
			target := strings.Fields(segment)
			if len(target) > 0 && blockedCommands[target[0]] {
				return fmt.Sprintf("Piping to '%s' is not allowed", target[0])
			}
		}
	}

	if strings.Contains(command, ">") && !safeCommands[name] {
		return fmt.Sprintf("Redirects with '%s' are not allowed", name)
	}

	return ""
}

var RunShellTool = openai.ChatCompletionToolUnionParam{
	OfFunction: &openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        "run_shell",
			Description: openai.String("Execute a shell command and return the output. Some commands are blocked for safety (rm, sudo, etc.)."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]string{
						"type":        "string",
						"description": "The shell command to execute",
					},
				},
				"required": []string{"command"},
			},
		},
	},
}

type runShellArguments struct {
	Command string `json:"command"`
}

func (t *Toolset) RunShell(rawArgs string) string {
	var args runShellArguments
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return fmt.Sprint("✗ Error calling tool run_shell: ", err)
	}

	if reason := checkShellCommand(args.Command); reason != "" {
		return "✗ " + reason
	}

	ctx, cancel := context.WithTimeout(context.Background(), shellTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", args.Command)
	if home, err := os.UserHomeDir(); err == nil {
		cmd.Dir = home
	}
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("✗ Command timed out after %d seconds", int(shellTimeout.Seconds()))
	}

	output := stdout.String()
	if stderr.Len() > 0 {
		output += fmt.Sprintf("\n[stderr]: %s", stderr.String())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			output += fmt.Sprintf("\n[exit code: %d]", exitErr.ExitCode())
		} else {
			return fmt.Sprint("✗ Command failed: ", err)
		}
	}

	if len(output) > shellOutputLimit {
		output = output[:shellOutputLimit] + "\n... (truncated)"
	}
	if strings.TrimSpace(output) == "" {
		return "✓ Command completed (no output)"
	}
	return output
}
