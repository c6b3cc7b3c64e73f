//go:build unix

package utils

import (
	"golang.org/x/sys/unix"
)

func statDisk(path string) (*DiskInfo, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return nil, err
	}
	bsize := uint64(st.Bsize)
	return &DiskInfo{
		Total: uint64(st.Blocks) * bsize,
		Free:  uint64(st.Bavail) * bsize,
	}, nil
}
