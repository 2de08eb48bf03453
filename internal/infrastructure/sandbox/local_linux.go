//go:build linux

package sandbox

import (
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

func setParentDeathSignal(attr *syscall.SysProcAttr) {
	attr.Pdeathsig = syscall.SIGKILL
}

// applyLimits sets rlimits on an already started child. The window between
// fork and prlimit is a few microseconds of interpreter startup.
func applyLimits(pid int, l resourceLimits) error {
	var errs []error
	set := func(resource int, v uint64, name string) {
		if v == 0 {
			return
		}
		lim := unix.Rlimit{Cur: v, Max: v}
		if err := unix.Prlimit(pid, resource, &lim, nil); err != nil {
			errs = append(errs, fmt.Errorf("prlimit %s: %w", name, err))
		}
	}
	set(unix.RLIMIT_CPU, l.CPUSeconds, "cpu")
	set(unix.RLIMIT_AS, l.AddressSpace, "as")
	set(unix.RLIMIT_FSIZE, l.FileSize, "fsize")
	set(unix.RLIMIT_NOFILE, l.OpenFiles, "nofile")
	return errors.Join(errs...)
}
