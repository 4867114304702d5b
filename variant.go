package tweetstream

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// VariantKind identifies one of the fixed stream request shapes.
type VariantKind int

const (
	KindSample VariantKind = iota
	KindFollow
	KindTrack
)

func (k VariantKind) String() string {
	switch k {
	case KindSample:
		return "sample"
	case KindFollow:
		return "follow"
	case KindTrack:
		return "track"
	}
	return "unknown"
}

// Variant selects which stream a session connects to and with what parameters.
// The zero value is the sample stream. Variants are immutable once built.
type Variant struct {
	kind  VariantKind
	ids   []int64
	terms []string
}

type followParams struct {
	IDs []int64 `param:"follow" validate:"required,min=1,dive,gt=0"`
}

type trackParams struct {
	Terms []string `param:"track" validate:"required,min=1,dive,required"`
}

// Sample returns the unfiltered sample stream variant.
func Sample() Variant {
	return Variant{kind: KindSample}
}

// FollowUsers returns a filter variant delivering statuses from the given user
// ids. At least one id is required and every id must be positive.
func FollowUsers(ids ...int64) (Variant, error) {
	p := followParams{IDs: slices.Clone(ids)}
	if err := validateParams(p); err != nil {
		return Variant{}, err
	}
	return Variant{kind: KindFollow, ids: p.IDs}, nil
}

// TrackKeywords returns a filter variant delivering statuses matching any of
// the given terms. Terms are trimmed; at least one is required and none may be blank.
func TrackKeywords(terms ...string) (Variant, error) {
	p := trackParams{Terms: make([]string, len(terms))}
	for i, term := range terms {
		p.Terms[i] = strings.TrimSpace(term)
	}
	if err := validateParams(p); err != nil {
		return Variant{}, err
	}
	return Variant{kind: KindTrack, terms: p.Terms}, nil
}

// Kind reports which request shape v uses.
func (v Variant) Kind() VariantKind { return v.kind }

// IDs returns a copy of the followed user ids.
func (v Variant) IDs() []int64 { return slices.Clone(v.ids) }

// Terms returns a copy of the tracked keywords.
func (v Variant) Terms() []string { return slices.Clone(v.terms) }

func (v Variant) String() string {
	switch v.kind {
	case KindFollow:
		return "follow(" + joinIDs(v.ids) + ")"
	case KindTrack:
		return "track(" + strings.Join(v.terms, ",") + ")"
	}
	return v.kind.String()
}

// Endpoint returns the method and path for v.
func (v Variant) Endpoint() Endpoint {
	return endpoints[v.kind]
}

// Form returns the POST parameters for v, or nil for the sample stream.
func (v Variant) Form() url.Values {
	switch v.kind {
	case KindFollow:
		return url.Values{"follow": {joinIDs(v.ids)}}
	case KindTrack:
		return url.Values{"track": {strings.Join(v.terms, ",")}}
	}
	return nil
}

// resolve maps a base URL and variant to the concrete request target.
func (v Variant) resolve(baseURL string) (method, target string, form url.Values) {
	ep := v.Endpoint()
	return ep.Method, ep.URL(baseURL), v.Form()
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
