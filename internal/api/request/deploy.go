package request

// Deploy uploads new content for an application. Either AppID or both
// TeamID and Name identify the application.
type Deploy struct {
	AppID   string `json:"app_id" validate:"omitempty,uuid"`
	TeamID  string `json:"team_id" validate:"required_without=AppID,omitempty,uuid"`
	Name    string `json:"name" validate:"required_without=AppID,omitempty,slug"`
	Content string `json:"content" validate:"required"`
}
