// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package unfurl

import (
	"html"
	"io"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultFavicon is used when a page declares no icon.
const DefaultFavicon = "/favicon.ico"

// Metadata is the preview information for a page. Empty fields are
// omitted from JSON.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
}

// strictPolicy strips all markup. A bluemonday policy is safe for
// concurrent use once built.
var strictPolicy = bluemonday.StrictPolicy()

// candidates collects every source for each field; the first
// non-empty value in priority order wins.
type candidates struct {
	ogTitle, twitterTitle, htmlTitle                   string
	ogDescription, twitterDescription, metaDescription string
	ogImage, twitterImage                              string
	icon                                               string
	baseHref                                           string
}

// Extract parses an HTML document and returns its preview metadata.
// Relative URLs are resolved against base, or against the document's
// <base href> when present. Parsing is lenient: malformed markup
// yields whatever could be recovered, and a read error yields the
// default favicon only.
func Extract(r io.Reader, base *url.URL) Metadata {
	document, err := xhtml.Parse(r)
	if err != nil {
		return Metadata{Favicon: resolve(base, DefaultFavicon)}
	}

	var found candidates
	walk(document, &found)

	if found.baseHref != "" {
		if parsed, err := url.Parse(found.baseHref); err == nil {
			if base != nil {
				parsed = base.ResolveReference(parsed)
			}
			if parsed.IsAbs() {
				base = parsed
			}
		}
	}

	metadata := Metadata{
		Title:       firstText(found.ogTitle, found.twitterTitle, found.htmlTitle),
		Description: firstText(found.ogDescription, found.twitterDescription, found.metaDescription),
		Image:       firstURL(base, found.ogImage, found.twitterImage),
		Favicon:     firstURL(base, found.icon),
	}
	if metadata.Favicon == "" {
		metadata.Favicon = resolve(base, DefaultFavicon)
	}
	return metadata
}

func walk(node *xhtml.Node, found *candidates) {
	if node.Type == xhtml.ElementNode {
		switch node.DataAtom {
		case atom.Title:
			if found.htmlTitle == "" {
				found.htmlTitle = textContent(node)
			}
		case atom.Meta:
			collectMeta(node, found)
		case atom.Link:
			if found.icon == "" && hasRelToken(attribute(node, "rel"), "icon") {
				found.icon = attribute(node, "href")
			}
		case atom.Base:
			if found.baseHref == "" {
				found.baseHref = attribute(node, "href")
			}
		case atom.Svg:
			// An inline SVG <title> is not the page title.
			return
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		walk(child, found)
	}
}

func collectMeta(node *xhtml.Node, found *candidates) {
	content := attribute(node, "content")
	if content == "" {
		return
	}

	// Open Graph uses property=, Twitter cards use name=, and many
	// sites mix them up.
	name := strings.ToLower(attribute(node, "property"))
	if name == "" {
		name = strings.ToLower(attribute(node, "name"))
	}

	setOnce := func(target *string) {
		if *target == "" {
			*target = content
		}
	}

	switch name {
	case "og:title":
		setOnce(&found.ogTitle)
	case "twitter:title":
		setOnce(&found.twitterTitle)
	case "og:description":
		setOnce(&found.ogDescription)
	case "twitter:description":
		setOnce(&found.twitterDescription)
	case "description":
		setOnce(&found.metaDescription)
	case "og:image", "og:image:url", "og:image:secure_url":
		setOnce(&found.ogImage)
	case "twitter:image", "twitter:image:src":
		setOnce(&found.twitterImage)
	}
}

func attribute(node *xhtml.Node, key string) string {
	for _, attr := range node.Attr {
		if strings.EqualFold(attr.Key, key) {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

func hasRelToken(rel, token string) bool {
	for _, field := range strings.Fields(rel) {
		if strings.EqualFold(field, token) {
			return true
		}
	}
	return false
}

func textContent(node *xhtml.Node) string {
	var builder strings.Builder
	var collect func(*xhtml.Node)
	collect = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			builder.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(node)
	return builder.String()
}

// cleanText strips markup and collapses whitespace. The policy emits
// HTML-escaped text, which is unescaped again because the result is
// JSON, not HTML.
func cleanText(s string) string {
	sanitized := html.UnescapeString(strictPolicy.Sanitize(s))
	return strings.Join(strings.Fields(sanitized), " ")
}

func firstText(values ...string) string {
	for _, value := range values {
		if cleaned := cleanText(value); cleaned != "" {
			return cleaned
		}
	}
	return ""
}

func firstURL(base *url.URL, values ...string) string {
	for _, value := range values {
		if resolved := resolve(base, value); resolved != "" {
			return resolved
		}
	}
	return ""
}

// resolve makes ref absolute against base and keeps only http(s)
// results. Without a base, a relative ref is returned unchanged.
func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	if parsed.IsAbs() && parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.String()
}
