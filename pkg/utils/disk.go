package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskInfo พื้นที่ของ filesystem ที่ directory อยู่
type DiskInfo struct {
	Total uint64 // bytes
	Free  uint64 // bytes ที่ process ใช้ได้จริง (ไม่รวม reserved ของ root)
}

func (d DiskInfo) UsedPercent() float64 {
	if d.Total == 0 {
		return 0
	}
	return float64(d.Total-d.Free) / float64(d.Total) * 100
}

// DiskSpaceError พื้นที่ไม่พอสำหรับงานที่จะเริ่ม
type DiskSpaceError struct {
	Dir            string
	Required       int64
	Available      uint64
	MinFreePercent float64
}

func (e *DiskSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space in %s: required %s, available %s (keep %.0f%% free)",
		e.Dir,
		FormatBytes(uint64(e.Required)),
		FormatBytes(e.Available),
		e.MinFreePercent,
	)
}

// CheckDiskSpace คืน *DiskSpaceError ถ้าจอง requiredBytes แล้วพื้นที่ว่างต่ำกว่า minFreePercent
// error อื่นหมายถึงอ่านข้อมูล filesystem ไม่ได้
func CheckDiskSpace(dir string, requiredBytes int64, minFreePercent float64) (*DiskInfo, error) {
	// dir ของ job อาจยังไม่ถูกสร้าง
	target := dir
	for {
		if _, err := os.Stat(target); err == nil {
			break
		}
		parent := filepath.Dir(target)
		if parent == target {
			break
		}
		target = parent
	}

	info, err := statDisk(target)
	if err != nil {
		return nil, fmt.Errorf("stat filesystem of %s: %w", dir, err)
	}
	if err := evaluateDiskSpace(dir, *info, requiredBytes, minFreePercent); err != nil {
		return info, err
	}
	return info, nil
}

func evaluateDiskSpace(dir string, info DiskInfo, requiredBytes int64, minFreePercent float64) error {
	if minFreePercent <= 0 {
		minFreePercent = 10
	}
	spaceErr := &DiskSpaceError{
		Dir:            dir,
		Required:       requiredBytes,
		Available:      info.Free,
		MinFreePercent: minFreePercent,
	}

	if requiredBytes < 0 || uint64(requiredBytes) > info.Free {
		return spaceErr
	}
	if info.Total == 0 {
		return nil
	}
	remaining := float64(info.Free-uint64(requiredBytes)) / float64(info.Total) * 100
	if remaining < minFreePercent {
		return spaceErr
	}
	return nil
}

// FormatBytes แปลง bytes เป็น human-readable format
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// DirSize ขนาดรวมของไฟล์ทั้งหมดใต้ dir
func DirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
