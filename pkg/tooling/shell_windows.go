//go:build windows

package tooling

import "os/exec"

// setProcessGroup is a no-op on Windows; exec.CommandContext's default kill
// applies. Child processes spawned by the shell may outlive the timeout.
func setProcessGroup(cmd *exec.Cmd) {}
