package platform

// Template is a message template maintained in the platform backend. The
// follow-up pipeline only reads templates; CRUD lives elsewhere.
type Template struct {
	ID           string `json:"id"`
	TemplateType string `json:"template_type"`
	Description  string `json:"description"`
	IsPrimary    bool   `json:"is_primary"`
}

type templatesResponse struct {
	Templates []Template `json:"templates"`
}

// CallLogRecord is the audit record written before a follow-up is dispatched.
type CallLogRecord struct {
	ContactNumber   string `json:"contact_number"`
	CallType        string `json:"call_type"`
	DurationSeconds int    `json:"duration_seconds"`
	TimestampMillis int64  `json:"timestamp_millis"`
}

// MessageSentRecord marks that a follow-up message went out to a contact.
type MessageSentRecord struct {
	ContactNumber   string `json:"contact_number"`
	MessageSent     string `json:"message_sent"`
	TimestampMillis int64  `json:"timestamp_millis"`
}
