package render

import _ "embed"

// Built-in templates for the standard Mouser layout. Deployments can
// override them with files on disk; see release.Templates.

//go:embed templates/web.html
var DefaultWebTemplate string

//go:embed templates/email.html
var DefaultEmailTemplate string
