//go:build !unix

package checkpoint

import "os"

// fileID only checks that path exists; rotation by rename is not detected
func fileID(path string) (uint64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	return 0, nil
}
