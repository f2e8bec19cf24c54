package layout

import "treepilot/family"

// tnode is the working record of the Buchheim/Walker tidy tree algorithm.
// Field names follow the paper: prelim (z), mod (m), change (c), shift (s),
// thread (t), ancestor (a) and default ancestor (A).
type tnode struct {
	node     *family.PersonNode
	parent   *tnode
	children []*tnode
	depth    int
	i        int // index among siblings

	A, a, t    *tnode
	z, m, c, s float64

	x float64 // final breadth coordinate
}

// separation decides the gap between two adjacent nodes on the same level.
type separation func(a, b *tnode) float64

func siblingAware(sibling, cousin float64) separation {
	return func(a, b *tnode) float64 {
		if a.parent == b.parent {
			return sibling
		}
		return cousin
	}
}

func buildTidy(root *family.PersonNode) *tnode {
	var build func(n *family.PersonNode, parent *tnode, i, depth int) *tnode
	build = func(n *family.PersonNode, parent *tnode, i, depth int) *tnode {
		t := &tnode{node: n, parent: parent, i: i, depth: depth}
		t.a = t
		if len(n.Children) > 0 {
			t.children = make([]*tnode, len(n.Children))
			for ci, c := range n.Children {
				t.children[ci] = build(c, t, ci, depth+1)
			}
		}
		return t
	}
	// The algorithm reads parent.children for the root too, so give it a sentinel parent.
	sentinel := &tnode{}
	sentinel.a = sentinel
	t := build(root, sentinel, 0, 0)
	sentinel.children = []*tnode{t}
	return t
}

// tidy assigns unit-space breadth coordinates (x) to every node of the tree rooted at t.
func tidy(t *tnode, sep separation) {
	eachAfter(t, func(v *tnode) { firstWalk(v, sep) })
	t.parent.m = -t.z
	eachBefore(t, func(v *tnode) {
		v.x = v.z + v.parent.m
		v.m += v.parent.m
	})
}

func firstWalk(v *tnode, sep separation) {
	siblings := v.parent.children
	var w *tnode
	if v.i > 0 {
		w = siblings[v.i-1]
	}
	if len(v.children) > 0 {
		executeShifts(v)
		midpoint := (v.children[0].z + v.children[len(v.children)-1].z) / 2
		if w != nil {
			v.z = w.z + sep(v, w)
			v.m = v.z - midpoint
		} else {
			v.z = midpoint
		}
	} else if w != nil {
		v.z = w.z + sep(v, w)
	}
	ancestor := v.parent.A
	if ancestor == nil {
		ancestor = siblings[0]
	}
	v.parent.A = apportion(v, w, ancestor, sep)
}

func apportion(v, w, ancestor *tnode, sep separation) *tnode {
	if w == nil {
		return ancestor
	}
	vip, vop := v, v
	vim := w
	vom := vip.parent.children[0]
	sip, sop, sim, som := vip.m, vop.m, vim.m, vom.m

	for {
		vim = nextRight(vim)
		vip = nextLeft(vip)
		if vim == nil || vip == nil {
			break
		}
		vom = nextLeft(vom)
		vop = nextRight(vop)
		vop.a = v
		shift := vim.z + sim - vip.z - sip + sep(vim, vip)
		if shift > 0 {
			moveSubtree(nextAncestor(vim, v, ancestor), v, shift)
			sip += shift
			sop += shift
		}
		sim += vim.m
		sip += vip.m
		som += vom.m
		sop += vop.m
	}
	if vim != nil && nextRight(vop) == nil {
		vop.t = vim
		vop.m += sim - sop
	}
	if vip != nil && nextLeft(vom) == nil {
		vom.t = vip
		vom.m += sip - som
		ancestor = v
	}
	return ancestor
}

func nextLeft(v *tnode) *tnode {
	if len(v.children) > 0 {
		return v.children[0]
	}
	return v.t
}

func nextRight(v *tnode) *tnode {
	if len(v.children) > 0 {
		return v.children[len(v.children)-1]
	}
	return v.t
}

func moveSubtree(wm, wp *tnode, shift float64) {
	change := shift / float64(wp.i-wm.i)
	wp.c -= change
	wp.s += shift
	wm.c += change
	wp.z += shift
	wp.m += shift
}

func executeShifts(v *tnode) {
	shift, change := 0.0, 0.0
	for i := len(v.children) - 1; i >= 0; i-- {
		w := v.children[i]
		w.z += shift
		w.m += shift
		change += w.c
		shift += w.s + change
	}
}

func nextAncestor(vim, v, ancestor *tnode) *tnode {
	if vim.a.parent == v.parent {
		return vim.a
	}
	return ancestor
}

func eachAfter(t *tnode, fn func(*tnode)) {
	for _, c := range t.children {
		eachAfter(c, fn)
	}
	fn(t)
}

func eachBefore(t *tnode, fn func(*tnode)) {
	fn(t)
	for _, c := range t.children {
		eachBefore(c, fn)
	}
}

// fitBreadth rescales unit-space x so the tree spans extent, leaving half a
// separation of margin on each edge. A single node lands in the middle.
func fitBreadth(t *tnode, extent float64, sep separation) {
	left, right := t, t
	eachBefore(t, func(n *tnode) {
		if n.x < left.x {
			left = n
		}
		if n.x > right.x {
			right = n
		}
	})
	s := 1.0
	if left != right {
		s = sep(left, right) / 2
	}
	tx := s - left.x
	kx := extent / (right.x + s + tx)
	eachBefore(t, func(n *tnode) {
		n.x = (n.x + tx) * kx
	})
}
