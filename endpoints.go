package tweetstream

import "strings"

// DefaultBaseURL is the public streaming API host.
const DefaultBaseURL = "https://stream.twitter.com"

// Endpoint holds the HTTP method and path for one stream variant.
type Endpoint struct {
	Method string
	Path   string
}

// URL returns the full URL for this endpoint under baseURL.
func (e Endpoint) URL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + e.Path
}

// endpoints maps variant kinds to their streaming endpoints. Use Variant.Endpoint.
// Follow and track share the filter endpoint and differ only in the form body.
var endpoints = map[VariantKind]Endpoint{
	KindSample: {Method: "GET", Path: "/1/statuses/sample.json"},
	KindFollow: {Method: "POST", Path: "/1/statuses/filter.json"},
	KindTrack:  {Method: "POST", Path: "/1/statuses/filter.json"},
}
