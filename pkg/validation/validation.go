package validation

// FieldError describes a single violated field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Errors collects every violation in a request before failing, so a client
// can fix all fields in one round trip.
type Errors struct {
	Fields []FieldError `json:"errors"`
}

func (e *Errors) Error() string {
	return "validation error"
}

// Add records a violation.
func (e *Errors) Add(field, code, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Code: code, Message: message})
}

// Err returns the collected violations, or nil when the request is valid.
func (e *Errors) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// New builds a single-field validation error.
func New(field, code, message string) error {
	e := &Errors{}
	e.Add(field, code, message)
	return e
}
