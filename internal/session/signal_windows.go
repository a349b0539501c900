//go:build windows

package session

import "errors"

// OSSignaller is a stub on Windows; screen-hosted servers are a
// Unix-only arrangement.
type OSSignaller struct{}

func (OSSignaller) Terminate(pid int32) error {
	return errors.New("signal delivery not supported on windows")
}

func (OSSignaller) Kill(pid int32) error {
	return errors.New("signal delivery not supported on windows")
}
