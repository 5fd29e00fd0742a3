package enum

// Toggle returns the opposite theme. Anything that is not dark flips to dark.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// ToggleName flips a raw theme name. Only the exact name "dark" flips to light,
// any other value (including unknown or empty strings) flips to dark.
func ToggleName(name string) string {
	current := ThemeLight
	if name == ThemeDark.String() {
		current = ThemeDark
	}
	return current.Toggle().String()
}
