package storage

import (
	"os"
	"path/filepath"
)

// DiskUsageBytes returns the total size of regular files under dir.
// Used for status reporting; errors walking individual entries are skipped.
func DiskUsageBytes(dir string) int64 {
	var total int64
	filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}
