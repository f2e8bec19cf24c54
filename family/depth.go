package family

// MaxDepth returns the longest root-to-leaf path in edges. A nil or childless node is 0.
func MaxDepth(n *PersonNode) int {
	if n == nil {
		return 0
	}
	deepest := 0
	for _, c := range n.Children {
		if d := MaxDepth(c) + 1; d > deepest {
			deepest = d
		}
	}
	return deepest
}

// Count returns the number of nodes in the tree rooted at n.
func Count(n *PersonNode) int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += Count(c)
	}
	return total
}

// Extent is the number of generations available in each direction of a record.
type Extent struct {
	Children    int `json:"children"`
	Ancestors   int `json:"ancestors"`
	Descendants int `json:"descendants"`
}

// Measure computes the available depth of a provider record per direction.
func Measure(r *Record) Extent {
	if r == nil {
		return Extent{}
	}
	return Extent{
		Children:    listDepth(r.Children),
		Ancestors:   listDepth(r.Ancestors),
		Descendants: listDepth(r.Descendants),
	}
}

// listDepth counts generations in a child list: empty is 0, a list of leaves is 1.
func listDepth(list []*Record) int {
	deepest := 0
	for _, r := range list {
		if d := 1 + listDepth(r.Children); d > deepest {
			deepest = d
		}
	}
	return deepest
}

// DepthControl bounds a user-adjustable generation count for one direction.
type DepthControl struct {
	// Available is the number of generations present in the data.
	Available int `json:"available"`
	// FetchLimit is the depth the provider was asked for; 0 means the data is complete.
	FetchLimit int `json:"fetchLimit"`
}

// Max returns the largest depth the control may request. When the provider cut
// the data at its fetch limit, one more generation is offered so that asking for
// everything available stays reachable.
func (c DepthControl) Max() int {
	if c.FetchLimit > 0 && c.Available >= c.FetchLimit {
		return c.Available + 1
	}
	return c.Available
}

// Enabled reports whether the control has anything to adjust.
func (c DepthControl) Enabled() bool {
	return c.Max() > 0
}

// Clamp keeps a requested depth inside [0, Max()].
func (c DepthControl) Clamp(requested int) int {
	if requested < 0 {
		return 0
	}
	if m := c.Max(); requested > m {
		return m
	}
	return requested
}

// NeedsFetch reports whether honouring requested requires data beyond what was fetched.
func (c DepthControl) NeedsFetch(requested int) bool {
	return c.FetchLimit > 0 && requested > c.FetchLimit
}
