package models

// Preferences mirrors the SPA's theme/branding context.
type Preferences struct {
	Theme        string `json:"theme"`
	PrimaryColor string `json:"primaryColor"`
	AccentColor  string `json:"accentColor"`
	Layout       string `json:"layout"`
	Density      string `json:"density"`
	Radius       string `json:"radius"`
}

// DefaultPreferences are used for any key never written.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:        "light",
		PrimaryColor: "#4f46e5",
		AccentColor:  "#06b6d4",
		Layout:       "sidebar",
		Density:      "comfortable",
		Radius:       "md",
	}
}
