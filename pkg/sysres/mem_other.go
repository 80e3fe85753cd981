//go:build !linux && !darwin

package sysres

func totalSystemMemory() (uint64, bool) {
	return 0, false
}
