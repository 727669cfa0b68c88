package sanitize

import (
	"regexp"
	"strings"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"/", "&#x2F;",
)

// EscapeHTML escapes a value for safe embedding in HTML output.
func EscapeHTML(input string) string {
	return htmlEscaper.Replace(input)
}

var textStripPattern = regexp.MustCompile(`[<>"'&]`)

// Text removes characters that could carry markup out of a plain-text value.
func Text(input string) string {
	return textStripPattern.ReplaceAllString(input, "")
}

var allowedRichTextTags = map[string]bool{
	"p": true, "br": true, "strong": true, "b": true, "em": true, "i": true,
	"u": true, "ul": true, "ol": true, "li": true, "span": true,
	"h1": true, "h2": true, "h3": true,
}

var selfClosingTags = map[string]bool{"br": true}

var (
	commentPattern      = regexp.MustCompile(`(?s)<!--.*?-->`)
	dangerousTagPattern = regexp.MustCompile(`(?i)</?(script|style|iframe|object|embed|meta|link)[^>]*>`)
	onAttrDQPattern     = regexp.MustCompile(`(?i)\s+on\w+="[^"]*"`)
	onAttrSQPattern     = regexp.MustCompile(`(?i)\s+on\w+='[^']*'`)
	styleAttrDQPattern  = regexp.MustCompile(`(?i)\s+style="[^"]*"`)
	styleAttrSQPattern  = regexp.MustCompile(`(?i)\s+style='[^']*'`)
	tagPattern          = regexp.MustCompile(`(?i)</?([a-z0-9]+)(?:\s[^>]*)?>`)
	emptyParaPattern    = regexp.MustCompile(`(?i)<(p)>\s*</p>`)
	multiSpacePattern   = regexp.MustCompile(`\s{2,}`)
	anyTagPattern       = regexp.MustCompile(`<[^>]*>`)
	wsRunPattern        = regexp.MustCompile(`\s+`)
)

// RichText reduces editor HTML to an allowlisted subset. Event handlers,
// inline styles and structural tags are dropped; div becomes p.
func RichText(input string) string {
	if input == "" {
		return ""
	}

	sanitized := commentPattern.ReplaceAllString(input, "")
	sanitized = dangerousTagPattern.ReplaceAllString(sanitized, "")
	sanitized = onAttrDQPattern.ReplaceAllString(sanitized, "")
	sanitized = onAttrSQPattern.ReplaceAllString(sanitized, "")
	sanitized = styleAttrDQPattern.ReplaceAllString(sanitized, "")
	sanitized = styleAttrSQPattern.ReplaceAllString(sanitized, "")

	sanitized = tagPattern.ReplaceAllStringFunc(sanitized, func(match string) string {
		sub := tagPattern.FindStringSubmatch(match)
		tag := strings.ToLower(sub[1])
		closing := strings.HasPrefix(match, "</")

		if tag == "div" {
			if closing {
				return "</p>"
			}
			return "<p>"
		}
		if !allowedRichTextTags[tag] {
			return ""
		}
		if selfClosingTags[tag] {
			return "<" + tag + " />"
		}
		if closing {
			return "</" + tag + ">"
		}
		return "<" + tag + ">"
	})

	sanitized = emptyParaPattern.ReplaceAllString(sanitized, "")
	sanitized = strings.ReplaceAll(sanitized, "&nbsp;", " ")
	sanitized = multiSpacePattern.ReplaceAllString(sanitized, " ")
	sanitized = strings.TrimSpace(sanitized)

	if sanitized == "" {
		return "<p></p>"
	}
	return sanitized
}

// Truncate shortens s to at most max runes, never splitting a multi-byte
// sequence the way a byte slice would.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// PlainTextFromHTML flattens HTML to whitespace-normalised plain text.
func PlainTextFromHTML(html string) string {
	if html == "" {
		return ""
	}
	withoutTags := anyTagPattern.ReplaceAllString(html, " ")
	return strings.TrimSpace(wsRunPattern.ReplaceAllString(Text(withoutTags), " "))
}
