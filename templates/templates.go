// Package templates holds the email templates rendered into queued notifications.
package templates

import "embed"

// Emails contains templates/emails/<name>[_<lang>].{html,txt}
//
//go:embed emails
var Emails embed.FS
