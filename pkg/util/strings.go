package util

import (
	"strings"
)

// RemoveDuplicateStrings keeps the first occurrence of each non-empty string not in ignoreList
func RemoveDuplicateStrings(strings []string, ignoreList []string) []string {
	presentStrings := make(map[string]bool)
	var list []string

	for _, ignoreString := range ignoreList {
		presentStrings[ignoreString] = true
	}

	for _, item := range strings {
		if _, value := presentStrings[item]; !value && item != "" {
			presentStrings[item] = true
			list = append(list, item)
		}
	}
	return list
}

// CollapseWhitespace trims s and replaces every run of whitespace with one space
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// LeftPad prefixes s with filler until it has at least length runes
func LeftPad(s string, length int, filler rune) string {
	missing := length - len([]rune(s))
	if missing <= 0 {
		return s
	}

	return strings.Repeat(string(filler), missing) + s
}
