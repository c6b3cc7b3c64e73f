package models

import (
	"time"

	"github.com/google/uuid"
)

// Course คอร์สเรียน (CRUD อยู่นอก service นี้ ใช้เพื่อ resolve สิทธิ์เท่านั้น)
type Course struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Title     string    `gorm:"size:255;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Course) TableName() string {
	return "courses"
}

// Lesson บทเรียน อ้างอิง video ได้ไม่เกินหนึ่งตัว
type Lesson struct {
	ID        uuid.UUID  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CourseID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	VideoID   *uuid.UUID `gorm:"type:uuid;index"` // nullable
	Title     string     `gorm:"size:255;not null"`
	Position  int        `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Course *Course `gorm:"foreignKey:CourseID"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// Enrollment คู่ (user, course) การมีอยู่ของ row คือสิทธิ์เข้าถึงทุก lesson ในคอร์ส
type Enrollment struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course;index"`
	Progress  float64   `gorm:"default:0"` // 0-100%
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Enrollment) TableName() string {
	return "enrollments"
}
