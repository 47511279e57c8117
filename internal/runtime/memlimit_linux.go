//go:build linux

package runtime

import "golang.org/x/sys/unix"

// systemMemoryBytes reports total physical memory, or 0 when unknown.
func systemMemoryBytes() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0
	}
	return uint64(info.Totalram) * uint64(info.Unit)
}
