package html

// ChromeClass is a semantic CSS class applied to form chrome.
type ChromeClass string

const (
	ClassForm    ChromeClass = "flexforms-form"
	ClassHeader  ChromeClass = "flexforms-header"
	ClassField   ChromeClass = "flexforms-field"
	ClassInvalid ChromeClass = "flexforms-invalid"
	ClassActions ChromeClass = "flexforms-actions"
	ClassErrors  ChromeClass = "flexforms-errors"
	ClassError   ChromeClass = "flexforms-error"
)

// ChromeClasses overrides the default classes. Empty entries keep the
// default.
type ChromeClasses struct {
	Form    string
	Header  string
	Field   string
	Invalid string
	Actions string
	Errors  string
	Error   string
}

func (c ChromeClasses) resolve() map[string]string {
	pick := func(override string, fallback ChromeClass) string {
		if cleaned := sanitizeClassList(override); cleaned != "" {
			return cleaned
		}
		return string(fallback)
	}
	return map[string]string{
		"form":    pick(c.Form, ClassForm),
		"header":  pick(c.Header, ClassHeader),
		"field":   pick(c.Field, ClassField),
		"invalid": pick(c.Invalid, ClassInvalid),
		"actions": pick(c.Actions, ClassActions),
		"errors":  pick(c.Errors, ClassErrors),
		"error":   pick(c.Error, ClassError),
	}
}
