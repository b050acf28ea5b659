package normalize

import (
	"bytes"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	stripPolicyOnce sync.Once
	stripPolicy     *bluemonday.Policy
	markdown        = goldmark.New()
)

func policy() *bluemonday.Policy {
	stripPolicyOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
		stripPolicy.AddSpaceWhenStrippingTag(true)
	})
	return stripPolicy
}

// StripHTML removes all markup from s, replacing each tag with a space and
// collapsing whitespace runs. Entities are decoded.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<&") {
		return CollapseSpace(s)
	}
	stripped := policy().Sanitize(s)
	return CollapseSpace(html.UnescapeString(stripped))
}

// MarkdownToText renders markdown and strips the resulting markup.
// Rendering failures fall back to stripping the raw source.
func MarkdownToText(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return StripHTML(src)
	}
	return StripHTML(buf.String())
}

// CollapseSpace trims s and folds every whitespace run into one space
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
