//go:build unix

package checkpoint

import (
	"golang.org/x/sys/unix"
)

// fileID returns the inode number of path
func fileID(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Ino), nil // #nosec G115
}
