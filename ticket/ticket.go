// Package ticket extracts the processing instructions from a Jira
// Automation webhook payload. The three instruction fields live as labeled
// lines inside the issue description:
//
//	FILES ON SERVER: <Dropbox folder path>
//	LINK EMBEDDED IMAGE TO: <tracking URL>
//	EMAIL SUBJECT LINE: <subject>
//
// Jira Cloud delivers the description either as plain text or as rendered
// HTML depending on how the automation rule is set up. HTML descriptions
// are sanitized and flattened back to labeled lines before matching.
package ticket

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// Payload is the subset of a Jira webhook body this service reads.
type Payload struct {
	Issue Issue `json:"issue"`
}

// Issue is the Jira issue envelope inside a webhook payload.
type Issue struct {
	Key    string `json:"key"`
	Fields Fields `json:"fields"`
}

// Fields carries the issue fields used for processing.
type Fields struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

// Info is the parsed instruction set for one ticket. Unset instruction
// fields stay empty; Missing reports them under their ticket labels.
type Info struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"raw_description"`
	FolderPath  string `json:"folder_path"`
	ImageURL    string `json:"image_url"`
	Subject     string `json:"subject"`
}

var (
	folderRe  = regexp.MustCompile(`(?i)FILES ON SERVER:\s*(.+?)(?:\n|$)`)
	imageRe   = regexp.MustCompile(`(?i)LINK EMBEDDED IMAGE TO:\s*(.+?)(?:\n|$)`)
	subjectRe = regexp.MustCompile(`(?i)EMAIL SUBJECT LINE:\s*(.+?)(?:\n|$)`)

	htmlTagRe = regexp.MustCompile(`(?i)</?(p|br|div|ul|ol|li|b|strong|i|em|a|h[1-6]|table|tr|td|span)\b[^>]*>`)
)

var (
	htmlPolicy   = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
	mdConverter  = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
)

// FromPayload builds the ticket Info from a decoded webhook payload.
// A payload without an issue key reports as "Unknown" so error
// notifications still name something.
func FromPayload(p *Payload) *Info {
	key := p.Issue.Key
	if key == "" {
		key = "Unknown"
	}
	info := Parse(p.Issue.Fields.Description)
	info.Key = key
	info.Title = p.Issue.Fields.Summary
	return info
}

// Parse extracts the instruction fields from an issue description.
func Parse(description string) *Info {
	info := &Info{Description: description}
	text := description
	if htmlTagRe.MatchString(description) {
		text = flattenHTML(description)
	}
	info.FolderPath = matchField(folderRe, text)
	info.ImageURL = matchField(imageRe, text)
	// The subject is substituted into HTML text verbatim; the other two
	// fields never render (folder path goes to Dropbox, the tracking URL
	// into quoted attributes).
	info.Subject = strictPolicy.Sanitize(matchField(subjectRe, text))
	return info
}

// Missing lists the unset required fields under their ticket labels, in
// the order they appear on the ticket form.
func (i *Info) Missing() []string {
	var missing []string
	if i.FolderPath == "" {
		missing = append(missing, "FILES ON SERVER (folder path)")
	}
	if i.ImageURL == "" {
		missing = append(missing, "LINK EMBEDDED IMAGE TO (tracking URL)")
	}
	if i.Subject == "" {
		missing = append(missing, "EMAIL SUBJECT LINE")
	}
	return missing
}

func matchField(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// flattenHTML turns a rendered HTML description back into labeled text
// lines: drop anything unsafe, convert the markup to markdown so block
// boundaries become newlines, then remove the emphasis markers Jira wraps
// around field labels.
func flattenHTML(description string) string {
	clean := htmlPolicy.Sanitize(description)
	md, err := mdConverter.ConvertString(clean)
	if err != nil {
		return clean
	}
	md = strings.ReplaceAll(md, "**", "")
	md = strings.ReplaceAll(md, `\_`, "_")
	return md
}
