package model

import "time"

type Application struct {
	ID        string    `json:"id" db:"id"`
	TeamID    string    `json:"team_id" db:"team_id"`
	Name      string    `json:"name" db:"name"`
	KeyName   *string   `json:"key_name,omitempty" db:"key_name"`
	IPNSName  *string   `json:"ipns_name,omitempty" db:"ipns_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ApplicationPatch lists the application fields an update may change.
// Nil fields are left untouched.
type ApplicationPatch struct {
	Name     *string
	KeyName  *string
	IPNSName *string
}

func (p ApplicationPatch) IsEmpty() bool {
	return p.Name == nil && p.KeyName == nil && p.IPNSName == nil
}
