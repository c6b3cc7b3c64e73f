package models

// Roles ที่ identity layer ใส่มาใน JWT
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// IsAdminRole ตรวจสอบว่าเป็น admin
func IsAdminRole(role string) bool {
	return role == RoleAdmin
}
