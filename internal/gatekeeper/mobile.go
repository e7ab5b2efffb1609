package gatekeeper

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	htmlEntityRe  = regexp.MustCompile(`&[a-zA-Z]+;|&#\d+;`)
	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
	horizSpaceRe   = regexp.MustCompile(`[ \t]{2,}`)

	fixedWidthRe = regexp.MustCompile(`width\s*:\s*\d{4,}px`)
	fontSizeRe   = regexp.MustCompile(`font-size\s*:\s*(\d+)(px|pt)`)
)

// entityMap decodes the common HTML entities to readable text; anything
// else matching htmlEntityRe is discarded.
var entityMap = []struct{ entity, repl string }{
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&apos;", "'"},
	{"&nbsp;", " "},
	{"&#39;", "'"},
	{"&#34;", `"`},
}

// mobileTemplate is the responsive shell descriptions are wrapped in:
// 16 px base font, 800 px max width, system font stack.
const mobileTemplate = `<div style="max-width:800px;margin:0 auto;padding:16px;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;font-size:16px;line-height:1.6;color:#333;">
%s
</div>`

// MobileEnforcer strips bloated HTML from descriptions and re-wraps the
// text in a responsive template. Most marketplace traffic is mobile;
// listings with fixed-width layouts or tiny fonts are penalized in mobile
// search.
type MobileEnforcer struct{}

// NewMobileEnforcer returns the enforcer.
func NewMobileEnforcer() *MobileEnforcer { return &MobileEnforcer{} }

// Enforce converts an HTML description to mobile-friendly format. Returns
// "" when the input has no text content at all.
func (me *MobileEnforcer) Enforce(html string) string {
	text := me.StripHTML(html)
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return me.WrapInTemplate(text)
}

// StripHTML removes scripts, styles, comments, tags, and entities,
// returning cleaned plain text with blank lines separating paragraphs.
func (me *MobileEnforcer) StripHTML(html string) string {
	text := scriptBlockRe.ReplaceAllString(html, "")
	text = styleBlockRe.ReplaceAllString(text, "")
	text = htmlCommentRe.ReplaceAllString(text, "")

	text = htmlTagRe.ReplaceAllString(text, " ")

	for _, e := range entityMap {
		text = strings.ReplaceAll(text, e.entity, e.repl)
	}
	text = htmlEntityRe.ReplaceAllString(text, "")

	text = horizSpaceRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = multiNewlineRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

// WrapInTemplate splits plain text into paragraphs on blank lines and
// wraps them in the responsive shell.
func (me *MobileEnforcer) WrapInTemplate(plain string) string {
	paragraphs := strings.Split(plain, "\n\n")
	parts := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		clean := strings.ReplaceAll(para, "\n", "<br>")
		parts = append(parts, `<p style="margin:0 0 12px 0;">`+clean+`</p>`)
	}
	return strings.Replace(mobileTemplate, "%s", strings.Join(parts, "\n"), 1)
}

// IsMobileSafe reports whether a description can be published as-is.
// It fails on fixed pixel widths ≥ 1000, font sizes below 14 px or 11 pt,
// tables, and style blocks.
func (me *MobileEnforcer) IsMobileSafe(html string) bool {
	lower := strings.ToLower(html)

	for _, m := range fontSizeRe.FindAllStringSubmatch(lower, -1) {
		size, _ := strconv.Atoi(m[1])
		if m[2] == "px" && size < 14 {
			return false
		}
		if m[2] == "pt" && size < 11 {
			return false
		}
	}

	if fixedWidthRe.MatchString(lower) {
		return false
	}
	if strings.Contains(lower, "<table") || strings.Contains(lower, "<style") {
		return false
	}
	return true
}
