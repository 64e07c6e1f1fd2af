//go:build windows

package supervisor

import (
	"os"
	"os/exec"
)

func sessionAttr(cmd *exec.Cmd) {}

func terminate(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func kill(pid int) error {
	return terminate(pid)
}

func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(pid)
	return err == nil
}
