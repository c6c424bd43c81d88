//go:build !windows

package tooling

import (
	"os/exec"
	"syscall"
)

// setProcessGroup runs the command in its own process group so the timeout
// kills children too, not just the shell.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
