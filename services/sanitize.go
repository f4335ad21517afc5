package services

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var plainTextPolicy = bluemonday.StrictPolicy()

// SanitizeText strips any markup from user supplied free text and trims it
func SanitizeText(value string) string {
	return strings.TrimSpace(html.UnescapeString(plainTextPolicy.Sanitize(value)))
}
