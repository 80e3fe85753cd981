// Package sysres detects system resources relevant to corpus generation and
// benchmarking: total RAM for key-loading budgets and free disk space at the
// corpus destination.
//
// Unsupported platforms return safe defaults with Reliable=false.
package sysres

// DefaultMemoryBytes is the fallback memory value (4 GB) used when
// platform-specific detection fails or is unsupported.
const DefaultMemoryBytes uint64 = 4 * 1024 * 1024 * 1024

// Result holds the result of a resource probe.
type Result struct {
	// Bytes is the detected amount in bytes.
	Bytes uint64

	// Reliable indicates whether the value was obtained from
	// a platform-specific method (true) or is a fallback (false).
	Reliable bool
}

// Total returns the total system memory.
// If platform-specific detection fails or is unsupported,
// it returns DefaultMemoryBytes with Reliable=false.
func Total() Result {
	bytes, ok := totalSystemMemory()
	if !ok || bytes == 0 {
		return Result{Bytes: DefaultMemoryBytes, Reliable: false}
	}
	return Result{Bytes: bytes, Reliable: true}
}

// TotalBytes is a convenience function that returns just the memory value.
func TotalBytes() uint64 {
	return Total().Bytes
}

// FreeDisk returns the bytes available to unprivileged users on the
// filesystem holding dir. Reliable is false when it could not be determined.
func FreeDisk(dir string) Result {
	bytes, ok := freeDiskSpace(dir)
	if !ok {
		return Result{}
	}
	return Result{Bytes: bytes, Reliable: true}
}
