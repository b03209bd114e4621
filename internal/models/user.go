package models

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	Password     string `gorm:"not null"`
	IsActive     bool   `gorm:"default:true"`
	TokenVersion int    `gorm:"default:1"`
}
