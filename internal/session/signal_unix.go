//go:build !windows

package session

import "syscall"

// OSSignaller delivers signals straight to a PID discovered by the
// process probe. The server is not our child (it lives inside the
// screen session), so there is no exec.Cmd to wait on.
type OSSignaller struct{}

func (OSSignaller) Terminate(pid int32) error {
	return syscall.Kill(int(pid), syscall.SIGTERM)
}

func (OSSignaller) Kill(pid int32) error {
	return syscall.Kill(int(pid), syscall.SIGKILL)
}
