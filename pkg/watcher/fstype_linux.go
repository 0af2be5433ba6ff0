//go:build linux

package watcher

import "golang.org/x/sys/unix"

// statfsFsType classifies path via statfs(2). f_type is a signed integer
// whose width varies by architecture; truncating to uint32 preserves the
// magic on all of them.
func statfsFsType(path string) FilesystemType {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return FSTypeUnknown
	}
	return fsTypeFromMagic(uint32(st.Type))
}
