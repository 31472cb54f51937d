package cli

// truncate обрезает длинные значения в табличном выводе
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
