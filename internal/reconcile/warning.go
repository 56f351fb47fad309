package reconcile

// Severity distinguishes actionable warnings from informational notes
type Severity string

const (
	SeverityWarn Severity = "warn"
	SeverityInfo Severity = "info"
)

// Warning describes one concern about the reconciled result. Field names
// which attribute the concern is about; Message is the human-readable
// explanation shown to the user.
type Warning struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func warn(field, message string) Warning {
	return Warning{Field: field, Message: message, Severity: SeverityWarn}
}

func info(field, message string) Warning {
	return Warning{Field: field, Message: message, Severity: SeverityInfo}
}

// Messages returns the warning messages in order, for display contexts
// that only want the text
func Messages(warnings []Warning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = w.Message
	}
	return out
}
