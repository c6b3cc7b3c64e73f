package ports

import "context"

// ═══════════════════════════════════════════════════════════════════════════════
// Notifier Port - สำหรับแจ้งเตือน operator (Telegram, etc.)
// ═══════════════════════════════════════════════════════════════════════════════

// FailureNotification ข้อมูลสำหรับแจ้งเตือนเมื่อ processing ล้มเหลว
type FailureNotification struct {
	VideoID  string
	Title    string
	Error    string
	Attempt  int
	Stage    string // download, probe, transcode, upload, finalize, stuck
	FailedAt string
}

// NotifierPort - Interface สำหรับส่งการแจ้งเตือน
type NotifierPort interface {
	// SendTranscodeFailAlert ส่งแจ้งเตือนเมื่อ transcode ล้มเหลว
	SendTranscodeFailAlert(ctx context.Context, notification *FailureNotification) error

	// SendStuckJobsAlert ส่งแจ้งเตือนเมื่อเจอ job ค้างใน processing
	SendStuckJobsAlert(ctx context.Context, videoIDs []string) error

	// IsEnabled ตรวจสอบว่าเปิดใช้งานการแจ้งเตือนหรือไม่
	IsEnabled() bool
}
