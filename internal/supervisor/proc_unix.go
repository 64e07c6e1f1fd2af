//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// sessionAttr places the child in its own process group so the whole
// tree can be signaled together on shutdown.
func sessionAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup sends sig to the child's entire process group.
func signalGroup(pid int, sig unix.Signal) error {
	return unix.Kill(-pid, sig)
}

// terminate asks the process group to exit cleanly.
func terminate(pid int) error {
	return signalGroup(pid, unix.SIGTERM)
}

// kill forcibly ends the process group.
func kill(pid int) error {
	return signalGroup(pid, unix.SIGKILL)
}

// alive reports whether the process still exists.
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
