package feedsync

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// Hosts whose players may be embedded in item content.
var embedHosts = regexp.MustCompile(`^https://(www\.youtube\.com|www\.youtube-nocookie\.com|player\.vimeo\.com)/`)

var (
	stripPolicy   = bluemonday.StrictPolicy()
	contentPolicy = newContentPolicy()
)

func newContentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("iframe")
	p.AllowAttrs("src").Matching(embedHosts).OnElements("iframe")
	p.AllowAttrs("width", "height", "frameborder", "allowfullscreen").OnElements("iframe")
	return p
}

// Keeps text, structural markup, images and trusted video embeds.
func sanitize(s string) string {
	return contentPolicy.Sanitize(s)
}
