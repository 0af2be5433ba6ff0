//go:build !linux

package watcher

// statfsFsType is a no-op off Linux; detection relies on the mount-name
// lookup, which reports FSTypeUnknown where no mount table exists.
func statfsFsType(string) FilesystemType {
	return FSTypeUnknown
}
