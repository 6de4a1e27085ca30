package parser

import (
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/IshaanNene/nfrminer/internal/types"
)

// SelectorType identifies the query language of a Selector.
type SelectorType string

const (
	TypeCSS   SelectorType = "css"
	TypeXPath SelectorType = "xpath"
)

// Selector is a single node query, evaluated relative to a root node.
type Selector struct {
	Expr string
	Type SelectorType
}

// CSS returns a CSS selector.
func CSS(expr string) Selector { return Selector{Expr: expr, Type: TypeCSS} }

// XPath returns an XPath selector. Relative lookups should start with ".//".
func XPath(expr string) Selector { return Selector{Expr: expr, Type: TypeXPath} }

func (s Selector) String() string {
	return string(s.Type) + ":" + s.Expr
}

// IsZero reports whether the selector is unset.
func (s Selector) IsZero() bool { return s.Expr == "" }

// Compile checks that the selector expression is well-formed.
func (s Selector) Compile() error {
	switch s.Type {
	case TypeCSS, "":
		_, err := cascadia.Compile(s.Expr)
		return err
	case TypeXPath:
		_, err := xpath.Compile(s.Expr)
		return err
	default:
		return fmt.Errorf("unknown selector type %q", s.Type)
	}
}

// All returns every node under root matching the selector, in document order.
func All(root *html.Node, sel Selector) ([]*html.Node, error) {
	if root == nil {
		return nil, &types.ParseError{Selector: sel.String(), Err: types.ErrNodeNotFound}
	}
	switch sel.Type {
	case TypeCSS, "":
		return goquery.NewDocumentFromNode(root).Find(sel.Expr).Nodes, nil
	case TypeXPath:
		nodes, err := htmlquery.QueryAll(root, sel.Expr)
		if err != nil {
			return nil, &types.ParseError{Selector: sel.String(), Err: err}
		}
		return nodes, nil
	default:
		return nil, &types.ParseError{Selector: sel.String(), Err: fmt.Errorf("unknown selector type %q", sel.Type)}
	}
}

// First returns the first node matching the selector. A miss is reported as a
// ParseError wrapping types.ErrNodeNotFound.
func First(root *html.Node, sel Selector) (*html.Node, error) {
	nodes, err := All(root, sel)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, &types.ParseError{Selector: sel.String(), Err: types.ErrNodeNotFound}
	}
	return nodes[0], nil
}

// FirstText returns the normalized text of the first match.
func FirstText(root *html.Node, sel Selector) (string, error) {
	n, err := First(root, sel)
	if err != nil {
		return "", err
	}
	return Text(n), nil
}

// ByIDPattern returns elements whose id attribute fully matches pattern, in
// document order.
func ByIDPattern(root *html.Node, pattern *regexp.Regexp) []*html.Node {
	if root == nil {
		return nil
	}
	var out []*html.Node
	goquery.NewDocumentFromNode(root).Find("[id]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		if pattern.MatchString(id) {
			out = append(out, s.Nodes[0])
		}
	})
	return out
}
