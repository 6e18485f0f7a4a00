package config

const redacted = "****"

// Secret holds a credential. It prints as a mask so it can be passed to
// loggers and formatters without leaking the value.
type Secret string

// String returns a mask, or the empty string if no secret is set.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// GoString keeps %#v from printing the value.
func (s Secret) GoString() string {
	return s.String()
}

// Reveal returns the plain-text value. Only the command builder should call it.
func (s Secret) Reveal() string {
	return string(s)
}

// IsEmpty reports whether no secret is set.
func (s Secret) IsEmpty() bool {
	return s == ""
}
