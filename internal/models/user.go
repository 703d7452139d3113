package models

import "time"

// Role is the authorization role carried in a session claim.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a storefront account. Addresses are owned child records.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Name         string    `json:"name" gorm:"type:varchar(100);not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"` // never serialized
	Role         Role      `json:"role" gorm:"type:varchar(16);not null;default:'user'"`
	Phone        string    `json:"phone" gorm:"type:varchar(32)"`
	Avatar       string    `json:"avatar" gorm:"type:text"`
	Addresses    []Address `json:"addresses,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Version      int64     `json:"-" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile is the sanitized view of a User returned to callers.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Phone     string    `json:"phone"`
	Avatar    string    `json:"avatar"`
	Addresses []Address `json:"addresses"`
}

// Profile strips credentials from u.
func (u *User) Profile() Profile {
	addresses := u.Addresses
	if addresses == nil {
		addresses = []Address{}
	}
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Phone:     u.Phone,
		Avatar:    u.Avatar,
		Addresses: addresses,
	}
}
