package strutil

import "strings"

// CleanList returns a de-duplicated list of trimmed, non-empty strings.
func CleanList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

// ShellEscape returns a single-quoted shell literal for value.
func ShellEscape(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

// ShellJoin joins words into a single shell command string, quoting every
// word that contains characters special to the shell.
func ShellJoin(words []string) string {
	out := make([]string, 0, len(words))
	for _, word := range words {
		if needsQuoting(word) {
			out = append(out, ShellEscape(word))
			continue
		}
		out = append(out, word)
	}
	return strings.Join(out, " ")
}

func needsQuoting(word string) bool {
	if word == "" {
		return true
	}
	for _, r := range word {
		if r >= 'a' && r <= 'z' ||
			r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9' ||
			strings.ContainsRune("-_./:=@%+,", r) {
			continue
		}
		return true
	}
	return false
}
