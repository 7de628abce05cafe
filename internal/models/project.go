package models

import "time"

// Project represents an entry in a user's showcase.
type Project struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"type:varchar(200);not null"`
	Description string    `json:"description" gorm:"type:text"`
	URL         string    `json:"url" gorm:"type:varchar(2048);not null"`
	Image       *string   `json:"image" gorm:"type:varchar(1024)"`
	OwnerID     string    `json:"owner_id" gorm:"type:varchar(36);not null;index"`
	Owner       *User     `json:"owner,omitempty" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for the Project model.
func (Project) TableName() string {
	return "projects"
}

// OwnedBy reports whether the project belongs to the given user id.
func (p *Project) OwnedBy(userID string) bool {
	return p.OwnerID != "" && p.OwnerID == userID
}

// ProjectInput carries the fields of a new project.
type ProjectInput struct {
	Name        string
	Description string
	URL         string
}

// ProjectUpdate carries a partial update; nil fields keep their stored value.
type ProjectUpdate struct {
	Name        *string
	Description *string
	URL         *string
}

// Empty reports whether the update changes no text field.
func (u ProjectUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.URL == nil
}
