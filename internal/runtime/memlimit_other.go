//go:build !linux

package runtime

// systemMemoryBytes reports total physical memory, or 0 when unknown.
func systemMemoryBytes() uint64 { return 0 }
