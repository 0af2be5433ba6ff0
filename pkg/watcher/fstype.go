package watcher

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemType classifies the filesystem a watched path lives on.
// Inotify is unreliable on network mounts and most FUSE filesystems, so
// the watcher drops to polling there.
type FilesystemType int

const (
	FSTypeUnknown FilesystemType = iota
	FSTypeLocal
	FSTypeNFS
	FSTypeSMB
	FSTypeSSHFS
	FSTypeFUSE
)

func (t FilesystemType) String() string {
	switch t {
	case FSTypeLocal:
		return "local"
	case FSTypeNFS:
		return "nfs"
	case FSTypeSMB:
		return "smb"
	case FSTypeSSHFS:
		return "sshfs"
	case FSTypeFUSE:
		return "fuse"
	default:
		return "unknown"
	}
}

// mountsPath is where mount info is read from. Linux only; elsewhere the
// file is absent and detection reports FSTypeUnknown.
var mountsPath = "/proc/mounts"

// detectFilesystemTypeFunc is swappable in tests.
var detectFilesystemTypeFunc = detectFilesystemType

// DetectFilesystemType classifies the filesystem holding path. Detection is
// best-effort: any failure yields FSTypeUnknown, which the watcher treats
// as local.
func DetectFilesystemType(path string) FilesystemType {
	return detectFilesystemTypeFunc(path)
}

func detectFilesystemType(path string) FilesystemType {
	if path == "" {
		return FSTypeUnknown
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return FSTypeUnknown
	}
	// The file itself may not exist yet; its directory decides.
	if _, err := os.Stat(abs); err != nil {
		abs = filepath.Dir(abs)
	}

	// statfs answers without parsing mount tables, but its magic table
	// cannot cover every filesystem. Unknown magics fall through to the
	// mount-name lookup.
	if t := statfsFsType(abs); t != FSTypeUnknown {
		return t
	}

	fsName, ok := mountFsName(abs)
	if !ok {
		return FSTypeUnknown
	}
	return classifyFsName(fsName)
}

// Superblock magic numbers from linux/magic.h. Statfs reports these in
// f_type; the values fit in 32 bits on every architecture.
const (
	magicNFS     = 0x6969
	magicSMB     = 0x517B
	magicSMB2    = 0xFE534D42
	magicCIFS    = 0xFF534D42
	magicFUSE    = 0x65735546
	magicExt     = 0xEF53
	magicXFS     = 0x58465342
	magicBtrfs   = 0x9123683E
	magicZFS     = 0x2FC12FC1
	magicTmpfs   = 0x01021994
	magicOverlay = 0x794C7630
)

func fsTypeFromMagic(magic uint32) FilesystemType {
	switch magic {
	case magicNFS:
		return FSTypeNFS
	case magicSMB, magicSMB2, magicCIFS:
		return FSTypeSMB
	case magicFUSE:
		// sshfs mounts carry the generic FUSE magic.
		return FSTypeFUSE
	case magicExt, magicXFS, magicBtrfs, magicZFS, magicTmpfs, magicOverlay:
		return FSTypeLocal
	default:
		return FSTypeUnknown
	}
}

// mountFsName finds the filesystem name of the longest mount point that is
// a prefix of path.
func mountFsName(path string) (string, bool) {
	f, err := os.Open(mountsPath)
	if err != nil {
		return "", false
	}
	defer f.Close()

	bestLen := -1
	bestName := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		// <device> <mountpoint> <fstype> <options> ...
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mount := unescapeMount(fields[1])
		if !strings.HasPrefix(path, mount) {
			continue
		}
		// Reject partial component matches like /mnt matching /mnt2
		if mount != "/" && len(path) > len(mount) && path[len(mount)] != '/' {
			continue
		}
		if len(mount) > bestLen {
			bestLen = len(mount)
			bestName = fields[2]
		}
	}
	if err := scanner.Err(); err != nil || bestLen < 0 {
		return "", false
	}
	return bestName, true
}

// unescapeMount decodes the octal escapes /proc/mounts uses for spaces
// and tabs in mount points.
func unescapeMount(s string) string {
	replacer := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	return replacer.Replace(s)
}

func classifyFsName(name string) FilesystemType {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "nfs"):
		return FSTypeNFS
	case name == "cifs" || name == "smb2" || strings.HasPrefix(name, "smb"):
		return FSTypeSMB
	case strings.Contains(name, "sshfs"):
		return FSTypeSSHFS
	case strings.HasPrefix(name, "fuse"):
		return FSTypeFUSE
	case name == "ext4", name == "ext3", name == "ext2", name == "xfs",
		name == "btrfs", name == "zfs", name == "tmpfs", name == "overlay",
		name == "apfs", name == "hfs", name == "f2fs", name == "exfat",
		name == "vfat", name == "ntfs":
		return FSTypeLocal
	default:
		return FSTypeUnknown
	}
}

// isRemoteFilesystem reports whether inotify cannot be trusted on t.
func isRemoteFilesystem(t FilesystemType) bool {
	switch t {
	case FSTypeNFS, FSTypeSMB, FSTypeSSHFS, FSTypeFUSE:
		return true
	default:
		return false
	}
}
