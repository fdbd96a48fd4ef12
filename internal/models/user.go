package models

import (
	"slices"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	RoleUser   = "ROLE_USER"
	RoleDriver = "ROLE_CONDUCTEUR"
	RoleAdmin  = "ROLE_ADMIN"
)

type User struct {
	gorm.Model
	Email        string    `gorm:"column:email;unique;not null" json:"email"`
	Password     string    `gorm:"-:all" json:"-"` // Temporary field for password handling
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	Nom          string    `gorm:"column:nom;not null" json:"nom"`
	Prenom       string    `gorm:"column:prenom;not null" json:"prenom"`
	Telephone    string    `gorm:"column:telephone" json:"telephone"`
	Photo        string    `gorm:"column:photo" json:"photo"`
	Roles        RoleSet   `gorm:"column:roles;serializer:json" json:"roles"`
	Inscription  time.Time `gorm:"column:date_inscription" json:"dateinscription"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

func (u *User) HashPassword() error {
	if u.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// RoleSet is the set of role tags attached to a user. ROLE_USER is implicit:
// Has and EffectiveRoles report it even when the stored slice is empty.
type RoleSet []string

// EffectiveRoles returns the stored roles with ROLE_USER guaranteed present.
func (r RoleSet) EffectiveRoles() []string {
	roles := slices.Clone([]string(r))
	if !slices.Contains(roles, RoleUser) {
		roles = append(roles, RoleUser)
	}
	return roles
}

func (r RoleSet) Has(role string) bool {
	if role == RoleUser {
		return true
	}
	return slices.Contains([]string(r), role)
}

// With returns the set with role added. Idempotent union, existing roles kept.
func (r RoleSet) With(role string) RoleSet {
	if slices.Contains([]string(r), role) {
		return r
	}
	return append(slices.Clone([]string(r)), role)
}

// Without returns the set with role removed.
func (r RoleSet) Without(role string) RoleSet {
	out := make(RoleSet, 0, len(r))
	for _, existing := range r {
		if existing != role {
			out = append(out, existing)
		}
	}
	return out
}

func (u *User) IsDriver() bool {
	return u.Roles.Has(RoleDriver)
}

func (u *User) IsAdmin() bool {
	return u.Roles.Has(RoleAdmin)
}

// FullName is the display name used in notification messages.
func (u *User) FullName() string {
	return u.Prenom + " " + u.Nom
}
