//go:build windows

package ripgrep

import "os/exec"

// setProcessGroup is a no-op on Windows: no job object is created, and on
// timeout Process.Kill terminates only the direct rg child. rg invocations
// are short-lived and Process.Kill is sufficient here.
func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) func() error {
	return func() error {
		if cmd.Process == nil {
			return nil
		}
		return cmd.Process.Kill()
	}
}
