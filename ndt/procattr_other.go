//go:build !linux

package ndt

import "syscall"

// sysProcAttr returns process attributes that put the localizer in its own
// process group. Pdeathsig is not available on non-Linux platforms.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}
