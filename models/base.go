package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID gives a record a uuid primary key when it has none yet.
func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (u *User) BeforeCreate(tx *gorm.DB) error     { assignID(&u.ID); return nil }
func (m *MenuItem) BeforeCreate(tx *gorm.DB) error { assignID(&m.ID); return nil }
func (s *GuestSession) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	s.holdPhone()
	return nil
}
func (o *Order) BeforeCreate(tx *gorm.DB) error        { assignID(&o.ID); return nil }
func (a *Announcement) BeforeCreate(tx *gorm.DB) error { assignID(&a.ID); return nil }

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&MenuCategory{},
		&MenuItem{},
		&GuestSession{},
		&Order{},
		&OrderItem{},
		&Announcement{},
		&OTPCode{},
	}
}
