package editor

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richTextOnce   sync.Once
	richTextPolicy *bluemonday.Policy
)

// RichText strips markup that is unsafe to embed in a page, keeping the
// formatting a rich-text widget produces (paragraphs, emphasis, links, lists).
func RichText(html string) string {
	richTextOnce.Do(func() {
		richTextPolicy = bluemonday.UGCPolicy()
	})
	return richTextPolicy.Sanitize(html)
}
