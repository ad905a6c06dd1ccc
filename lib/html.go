package lib

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
)

func parseDocument(doc []byte) (*html.Node, error) {
	root, err := htmlquery.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, &DecodeError{What: "html", Err: err}
	}
	return root, nil
}

// hasClasses builds an XPath predicate matching elements whose class list
// contains every one of the given class names.
func hasClasses(classes ...string) string {
	preds := make([]string, len(classes))
	for i, c := range classes {
		preds[i] = fmt.Sprintf("contains(concat(' ', normalize-space(@class), ' '), ' %s ')", c)
	}
	return "[" + strings.Join(preds, " and ") + "]"
}

func removeAll(nodes []*html.Node) int {
	removed := 0
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
			removed++
		}
	}
	return removed
}

func digForText(n *html.Node) string {
	if n == nil {
		return ""
	}
	buf := new(bytes.Buffer)
	dig(n, buf)
	return compactWhitespace(buf.String())
}

// dig writes every descendant text node, separated by a space so that text
// from adjacent elements never runs together.
func dig(n *html.Node, buf *bytes.Buffer) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
		buf.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		dig(c, buf)
	}
}

func compactWhitespace(s string) string {
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.Trim(s, " ")
	return s
}
