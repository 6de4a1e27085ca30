package parser

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/nfrminer/internal/types"
)

// Text returns the whitespace-normalized inner text of n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	return NormalizeSpace(htmlquery.InnerText(n))
}

// NormalizeSpace drops characters XML cannot represent, collapses runs of
// whitespace (including embedded newlines) into single spaces and trims the
// ends.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(types.StripNonXML(s)), " ")
}
