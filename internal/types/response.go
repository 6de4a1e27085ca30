package types

import (
	"bytes"

	"golang.org/x/net/html"
)

// Response is a fetched issue page.
type Response struct {
	// StatusCode is the HTTP status code of the page document.
	StatusCode int

	// Body is the decoded page body.
	Body []byte

	// Request is a reference to the original request.
	Request *Request

	// FinalURL is the URL after any redirects.
	FinalURL string

	root *html.Node
}

// NewResponse creates a Response for req.
func NewResponse(req *Request, statusCode int, body []byte, finalURL string) *Response {
	return &Response{
		StatusCode: statusCode,
		Body:       body,
		Request:    req,
		FinalURL:   finalURL,
	}
}

// Node returns the parsed HTML tree, parsing the body on first use.
func (r *Response) Node() (*html.Node, error) {
	if r.root != nil {
		return r.root, nil
	}
	if len(r.Body) == 0 {
		return nil, ErrEmptyResponse
	}
	root, err := html.Parse(bytes.NewReader(r.Body))
	if err != nil {
		return nil, err
	}
	r.root = root
	return root, nil
}

// URLString returns the request URL, or the final URL when no request is attached.
func (r *Response) URLString() string {
	if r.Request != nil {
		return r.Request.URLString()
	}
	return r.FinalURL
}

// IsSuccess returns true if the response status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
