package roster

import "strings"

var levels = map[string]string{
	"ابتدائي":   "primary",
	"الابتدائي": "primary",
	"primary":   "primary",
	"إعدادي":    "middle",
	"اعدادي":    "middle",
	"الإعدادي":  "middle",
	"متوسط":     "middle",
	"middle":    "middle",
	"ثانوي":     "secondary",
	"الثانوي":   "secondary",
	"secondary": "secondary",
}

// NormalizeLevel maps Arabic and English school level names to primary, middle or secondary.
// Unknown values are returned unchanged.
func NormalizeLevel(value string) string {
	if level, ok := levels[value]; ok {
		return level
	}
	if level, ok := levels[strings.ToLower(value)]; ok {
		return level
	}
	return value
}
