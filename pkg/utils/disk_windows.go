//go:build windows

package utils

import (
	"golang.org/x/sys/windows"
)

func statDisk(path string) (*DiskInfo, error) {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}

	var availableToCaller, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(pathPtr, &availableToCaller, &total, &totalFree); err != nil {
		return nil, err
	}
	return &DiskInfo{Total: total, Free: availableToCaller}, nil
}
