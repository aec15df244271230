//go:build !windows

package executor

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureProcess starts the command in its own process group so that
// cancelling kills the package manager and everything it spawned.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		pid := cmd.Process.Pid
		if pgid, err := unix.Getpgid(pid); err == nil && pgid > 0 {
			return unix.Kill(-pgid, unix.SIGKILL)
		}
		return cmd.Process.Kill()
	}
}
