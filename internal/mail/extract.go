package mail

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// labeledCodePattern anchors on the word "code" so years, order numbers and
// street addresses earlier in the body are never mistaken for the code. The
// gap tolerates punctuation and short phrases ("code is", "code:") but no
// digits, so the capture always starts at the code itself.
var labeledCodePattern = regexp.MustCompile(`(?i)\bcode\b[^0-9]{0,12}(\d{4})\b`)

// bareCodePattern is the fallback for mails that carry the code without a
// label: exactly four digits on their own word boundary.
var bareCodePattern = regexp.MustCompile(`\b(\d{4})\b`)

// ExtractCode pulls the verification code out of a message body, or returns
// "" if none is present. HTML bodies are reduced to text first so codes inside
// markup are still found. A labeled code wins over any other 4-digit token in
// the body.
func ExtractCode(body string) string {
	text := body
	if looksLikeHTML(body) {
		if t, err := htmlToText(body); err == nil {
			text = t
		}
	}
	if m := labeledCodePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := bareCodePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<body") || strings.Contains(lower, "</")
}

func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}
