package theme

// Attrs is a DisplayTarget without a document, for callers that only need the resulting theme.
type Attrs map[string]string

// SetAttribute sets name to value.
func (a Attrs) SetAttribute(name, value string) { a[name] = value }

// Attribute returns the value of name.
func (a Attrs) Attribute(name string) string { return a[name] }
