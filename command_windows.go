package report

import "os/exec"

func setProcessGroup(*exec.Cmd) {}

func terminateProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func killProcessGroup(*exec.Cmd) {}
