package ndt

import "syscall"

// sysProcAttr returns process attributes that put the localizer in its own
// process group so the whole tree can be signaled together. Pdeathsig is a
// Linux-only safety net: if the monitor dies unexpectedly, the kernel sends
// SIGTERM to the direct child.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
