package model

// Stats holds per-status subscriber counts for monitoring.
// Useful for dashboard widgets and operational visibility.
type Stats struct {
	Total        int `json:"total"`
	Pending      int `json:"pending"`
	Active       int `json:"active"`
	Unsubscribed int `json:"unsubscribed"`
	Suppressed   int `json:"suppressed"`
}
