package models

import "time"

// Setting is a row in the small key-value config table, used for the alert
// webhook destination.
type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey;column:key"`
	Value     string    `json:"value" gorm:"column:value;type:text"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// TableName overrides the gorm table name.
func (Setting) TableName() string {
	return "settings"
}
