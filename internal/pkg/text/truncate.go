package text

import "unicode/utf8"

// Truncate 按字符截断 s，超出 max 个字符时追加 "..."。
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
