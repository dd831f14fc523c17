package followup

import (
	"github.com/clientcheck/followup-platform/internal/callevents"
	"github.com/clientcheck/followup-platform/internal/platform"
)

// FallbackMessage is the constant body used when no primary template exists
// for a call type. Kept for callers that still want to show the user
// something even though the pipeline itself skips dispatch in that case.
const FallbackMessage = "Thank you for calling! We will get back to you as soon as possible."

// SelectPrimary picks the template marked primary for the given call type.
// First match wins when more than one template is incorrectly flagged
// primary for the same type.
func SelectPrimary(templates []platform.Template, callType callevents.CallType) (platform.Template, bool) {
	for _, tpl := range templates {
		if tpl.TemplateType == string(callType) && tpl.IsPrimary {
			return tpl, true
		}
	}
	return platform.Template{}, false
}
