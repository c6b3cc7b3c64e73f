package models

import (
	"errors"
	"fmt"
)

// VideoStatus สถานะของ video
type VideoStatus string

const (
	VideoStatusPending    VideoStatus = "pending"    // มี record แล้ว ยังไม่เคย process
	VideoStatusProcessing VideoStatus = "processing" // orchestrator กำลังทำงาน
	VideoStatusReady      VideoStatus = "ready"      // มี rendition ขั้นต่ำและ master playlist แล้ว
	VideoStatusFailed     VideoStatus = "failed"     // attempt ล่าสุดไม่ผ่านเกณฑ์ขั้นต่ำ
)

// ErrInvalidTransition ถูกคืนเมื่อเปลี่ยนสถานะผิดกฎ
var ErrInvalidTransition = errors.New("invalid video status transition")

// transitions กฎการเปลี่ยนสถานะทั้งหมด
// pending -> failed ใช้เฉพาะกรณี enqueue ไม่สำเร็จ (ยังไม่มีงานใดถูกทำ)
var transitions = map[VideoStatus][]VideoStatus{
	VideoStatusPending:    {VideoStatusProcessing, VideoStatusFailed},
	VideoStatusProcessing: {VideoStatusReady, VideoStatusFailed},
	VideoStatusReady:      {VideoStatusProcessing},
	VideoStatusFailed:     {VideoStatusProcessing},
}

// AllVideoStatuses คืนรายการสถานะทั้งหมด
func AllVideoStatuses() []VideoStatus {
	return []VideoStatus{VideoStatusPending, VideoStatusProcessing, VideoStatusReady, VideoStatusFailed}
}

// ParseVideoStatus แปลง string เป็น VideoStatus
func ParseVideoStatus(s string) (VideoStatus, error) {
	status := VideoStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown video status %q", s)
	}
	return status, nil
}

func (s VideoStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo ตรวจสอบว่าเปลี่ยนจาก s ไป next ได้หรือไม่
func (s VideoStatus) CanTransitionTo(next VideoStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SourcesFor คืนสถานะทั้งหมดที่เปลี่ยนมาเป็น next ได้ (ใช้ใน conditional update)
func SourcesFor(next VideoStatus) []VideoStatus {
	var sources []VideoStatus
	for _, from := range AllVideoStatuses() {
		if from.CanTransitionTo(next) {
			sources = append(sources, from)
		}
	}
	return sources
}

// ValidateTransition คืน ErrInvalidTransition ถ้าเปลี่ยนไม่ได้
func ValidateTransition(from, to VideoStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// IsTerminal ready/failed เป็นสถานะสิ้นสุดของ attempt หนึ่ง
func (s VideoStatus) IsTerminal() bool {
	return s == VideoStatusReady || s == VideoStatusFailed
}
