package followup

// ActionEvent is a single notification action press delivered by the push
// subsystem's webhook. Data carries the notification payload exactly as it
// was attached at display time.
type ActionEvent struct {
	NotificationID string            `json:"notification_id"`
	ActionID       string            `json:"action_id"`
	InstallationID string            `json:"installation_id"`
	SessionToken   string            `json:"session_token"`
	Data           map[string]string `json:"data"`
}
