package models

import "time"

type Profile struct {
	ID        string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	FirstName string    `gorm:"column:first_name;type:varchar(255);not null" json:"first_name"`
	LastName  string    `gorm:"column:last_name;type:varchar(255);not null" json:"last_name"`
	Email     string    `gorm:"column:email;type:varchar(320);not null;uniqueIndex" json:"email"`
	GithubURL *string   `gorm:"column:github_url;type:varchar(512)" json:"github_url"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (Profile) TableName() string {
	return "profiles"
}
