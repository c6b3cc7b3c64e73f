//go:build !unix && !windows

package utils

import "errors"

func statDisk(string) (*DiskInfo, error) {
	return nil, errors.New("disk stats not supported on this platform")
}
