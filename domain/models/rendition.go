package models

import (
	"database/sql/driver"
	"encoding/json"
	"sort"
)

// Rendition ผลลัพธ์ของการ encode หนึ่ง quality
type Rendition struct {
	Quality      string `json:"quality"`                 // 720p
	PlaylistPath string `json:"playlist_path,omitempty"` // videos/{id}/hls/720p/playlist.m3u8
	Bandwidth    int    `json:"bandwidth,omitempty"`     // bits per second (video + audio)
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Segments     int    `json:"segments,omitempty"`
	Error        string `json:"error,omitempty"` // เฉพาะ rendition ที่ล้มเหลว
}

// Renditions list ของ rendition เก็บเป็น jsonb
type Renditions []Rendition

// Scan implements sql.Scanner for Renditions
func (r *Renditions) Scan(value interface{}) error {
	if value == nil {
		*r = Renditions{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, r)
}

// Value implements driver.Valuer for Renditions
func (r Renditions) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	return json.Marshal(r)
}

// Upsert แทนที่ rendition ที่มี quality เดียวกัน หรือเพิ่มใหม่
func (r Renditions) Upsert(rendition Rendition) Renditions {
	for i := range r {
		if r[i].Quality == rendition.Quality {
			r[i] = rendition
			return r
		}
	}
	return append(r, rendition)
}

// Find หา rendition ตาม quality
func (r Renditions) Find(quality string) (Rendition, bool) {
	for _, rendition := range r {
		if rendition.Quality == quality {
			return rendition, true
		}
	}
	return Rendition{}, false
}

// SortedByBandwidth คืน copy ที่เรียงจาก bandwidth ต่ำไปสูง
func (r Renditions) SortedByBandwidth() Renditions {
	sorted := make(Renditions, len(r))
	copy(sorted, r)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Bandwidth == sorted[j].Bandwidth {
			return sorted[i].Height < sorted[j].Height
		}
		return sorted[i].Bandwidth < sorted[j].Bandwidth
	})
	return sorted
}

// Qualities รายชื่อ quality ตามลำดับใน list
func (r Renditions) Qualities() []string {
	qualities := make([]string, 0, len(r))
	for _, rendition := range r {
		qualities = append(qualities, rendition.Quality)
	}
	return qualities
}
