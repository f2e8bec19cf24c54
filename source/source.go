// Package source provides the tree data and person detail providers: a family
// file on disk and an HTTP client for a remote treepilot server.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"treepilot/core"
	"treepilot/family"
)

// ErrUnavailable is returned when a provider cannot be reached.
var ErrUnavailable = errors.New("tree source unavailable")

// Depth defaults for tree queries.
const (
	DefaultDepth  = 5
	MaxQueryDepth = 20
)

// Kind selects which tree a provider builds around a person.
type Kind string

const (
	Bidirectional  Kind = "bidirectional"
	AncestorTree   Kind = "ancestors"
	DescendantTree Kind = "descendants"
)

// ParseKind accepts the query-string spellings used by the HTTP API.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "bidirectional", "both":
		return Bidirectional, nil
	case "ancestors", "ancestor", "up":
		return AncestorTree, nil
	case "descendants", "descendant", "down":
		return DescendantTree, nil
	default:
		return "", fmt.Errorf("unknown tree kind: %q", s)
	}
}

// Mode returns the layout mode for the kind.
func (k Kind) Mode() family.Mode {
	if k == AncestorTree || k == DescendantTree {
		return family.ModeSingle
	}
	return family.ModeBidirectional
}

// Direction returns the tag stamped on nodes of a single-direction tree.
func (k Kind) Direction() core.Direction {
	switch k {
	case AncestorTree:
		return core.DirectionAncestor
	case DescendantTree:
		return core.DirectionDescendant
	default:
		return core.DirectionNone
	}
}

// TreeQuery asks a provider for a depth-limited tree.
type TreeQuery struct {
	Kind        Kind
	Ancestors   int
	Descendants int
}

// DefaultQuery returns a bidirectional query with the default depth in both directions.
func DefaultQuery() TreeQuery {
	return TreeQuery{Kind: Bidirectional, Ancestors: DefaultDepth, Descendants: DefaultDepth}
}

// Normalize clamps both depths to [0, MaxQueryDepth] and fills in the kind.
func (q TreeQuery) Normalize() TreeQuery {
	if q.Kind == "" {
		q.Kind = Bidirectional
	}
	q.Ancestors = clampDepth(q.Ancestors)
	q.Descendants = clampDepth(q.Descendants)
	return q
}

// Depth returns the depth limit for a single-direction query.
func (q TreeQuery) Depth() int {
	if q.Kind == AncestorTree {
		return q.Ancestors
	}
	return q.Descendants
}

// Values encodes the query for a URL.
func (q TreeQuery) Values() url.Values {
	v := url.Values{}
	v.Set("mode", string(q.Kind))
	v.Set("ancestors", strconv.Itoa(q.Ancestors))
	v.Set("descendants", strconv.Itoa(q.Descendants))
	return v
}

func clampDepth(d int) int {
	if d < 0 {
		return 0
	}
	if d > MaxQueryDepth {
		return MaxQueryDepth
	}
	return d
}

// TreeProvider returns the tree around a person.
type TreeProvider interface {
	Tree(ctx context.Context, id string, q TreeQuery) (*family.Record, error)
}

// DetailProvider returns the extended record of a person.
type DetailProvider interface {
	PersonDetail(ctx context.Context, id string) (*family.Detail, error)
}

// Directory lists the people a provider knows about.
type Directory interface {
	Individuals(ctx context.Context) ([]*family.Record, error)
	Youngest(ctx context.Context) ([]*family.Record, error)
}

// Provider is everything a view or server needs from a data source.
type Provider interface {
	TreeProvider
	DetailProvider
	Directory
}
