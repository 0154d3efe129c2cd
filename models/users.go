package models

import "time"

const (
	RoleAdmin          = "admin"
	RoleKitchenManager = "kitchen_manager"
	RoleStaff          = "staff"
	RoleStudent        = "student"
	RoleGuest          = "guest"
)

var (
	// KitchenRoles may operate the kitchen display.
	KitchenRoles = []string{RoleAdmin, RoleKitchenManager, RoleStaff}
	// ManagerRoles may manage users.
	ManagerRoles = []string{RoleAdmin, RoleKitchenManager}
)

type User struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Email      *string   `gorm:"type:varchar(255);uniqueIndex" json:"email,omitempty"`
	Phone      string    `gorm:"type:varchar(10);index" json:"phone"`
	PIN        string    `gorm:"type:varchar(255)" json:"-"`
	Role       string    `gorm:"type:varchar(20);not null;default:'guest'" json:"role"`
	ParentName *string   `gorm:"type:varchar(255)" json:"parent_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleKitchenManager, RoleStaff, RoleStudent, RoleGuest:
		return true
	}
	return false
}

// IsStaff reports whether the user signs in with a PIN rather than OTP.
func (u *User) IsStaff() bool {
	return u.Role != RoleGuest
}

func (u *User) EmailOrEmpty() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
