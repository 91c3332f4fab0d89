package domain

// Theme is the UI colour scheme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// NotificationSettings toggles push and email channels.
type NotificationSettings struct {
	Push               bool `json:"push"`
	Email              bool `json:"email"`
	ConnectionRequests bool `json:"connectionRequests"`
	Marketing          bool `json:"marketing"`
}

// PrivacySettings controls what peers can see after scanning.
type PrivacySettings struct {
	ProfileVisible bool `json:"profileVisible"`
	ShowEmail      bool `json:"showEmail"`
	ShowPhone      bool `json:"showPhone"`
	AllowQRScan    bool `json:"allowQrScan"`
}

// Settings is a flat device preference record, persisted wholesale.
type Settings struct {
	Theme         Theme                `json:"theme"         validate:"oneof=light dark system"`
	Language      string               `json:"language"      validate:"required,min=2,max=8"`
	FontScale     float64              `json:"fontScale"     validate:"gte=0.5,lte=2"`
	Notifications NotificationSettings `json:"notifications"`
	Privacy       PrivacySettings      `json:"privacy"`
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Theme:     ThemeSystem,
		Language:  "en",
		FontScale: 1,
		Notifications: NotificationSettings{
			Push:               true,
			Email:              true,
			ConnectionRequests: true,
		},
		Privacy: PrivacySettings{
			ProfileVisible: true,
			ShowEmail:      true,
			AllowQRScan:    true,
		},
	}
}
