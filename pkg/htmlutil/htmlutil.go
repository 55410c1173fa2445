package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanText turns every kind of whitespace (including &nbsp; and the
// ideographic space) into a plain space, drops other non-printable runes,
// collapses runs of spaces and trims the result.
func CleanText(s string) string {
	out := strings.Builder{}
	for _, c := range s {
		switch {
		case unicode.IsSpace(c):
			out.WriteRune(' ')
		case unicode.IsPrint(c):
			out.WriteRune(c)
		}
	}
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(out.String(), " "))
}

// Text is CleanText applied to the combined text of a selection.
func Text(sel *goquery.Selection) string {
	return CleanText(sel.Text())
}

// CellTexts returns the cleaned text of every matched node, in order.
func CellTexts(sel *goquery.Selection) []string {
	out := make([]string, sel.Length())
	sel.Each(func(i int, s *goquery.Selection) {
		out[i] = Text(s)
	})
	return out
}

// At returns the cleaned text at position i or "" when out of range.
func At(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

var quotedArgument = regexp.MustCompile(`'([^']+)'`)

// PseudoURLTarget returns the real target of a link. Links of the form
// `javascript:open('/path',...)` carry it as their first quoted argument, an
// ordinary href is returned unchanged and "" is returned when a pseudo-URL
// has no quoted argument.
func PseudoURLTarget(href string) string {
	href = strings.TrimSpace(href)
	if !strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return href
	}
	return FirstQuoted(href)
}

// FirstQuoted returns the first single-quoted argument in a script snippet
// such as an onclick handler, or "" when there is none.
func FirstQuoted(script string) string {
	groups := quotedArgument.FindStringSubmatch(script)
	if len(groups) < 2 {
		return ""
	}
	return groups[1]
}

// Resolve resolves href against base, returning "" for an empty or
// unparsable href.
func Resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// PrecedingText finds the closest non-empty text before node, walking back
// through its previous siblings and then through its ancestors' previous
// siblings until `stop` is reached. Text consisting only of dashes is
// treated as a separator and skipped. The walk gives up on reaching an
// element named `barrier`, which is how callers keep one entry from picking
// up the text of the entry before it.
func PrecedingText(node, stop *html.Node, barrier string) string {
	for current := node; current != nil && current != stop; current = current.Parent {
		for sibling := current.PrevSibling; sibling != nil; sibling = sibling.PrevSibling {
			if sibling.Type == html.ElementNode && sibling.Data == barrier {
				return ""
			}
			text := CleanText(GetText(sibling))
			if text == "" || strings.Trim(text, "-—") == "" {
				continue
			}
			return text
		}
	}
	return ""
}
