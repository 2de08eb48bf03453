//go:build unix && !linux

package sandbox

import "syscall"

func setParentDeathSignal(*syscall.SysProcAttr) {}

func applyLimits(int, resourceLimits) error { return nil }
