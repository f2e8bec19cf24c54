// Package familytest provides tree fixtures shared by tests across packages.
package familytest

import (
	"fmt"

	"treepilot/core"
	"treepilot/family"
)

func year(y int) *int { return &y }

func person(id, name, gender string, born int) *family.Record {
	return &family.Record{ID: id, FullName: name, Gender: gender, BirthYear: year(born)}
}

// JaneDoe returns a bidirectional record: two parents with their own parents,
// three children, three grandchildren and one great-grandchild.
func JaneDoe() *family.Record {
	root := person("@I1@", "Jane Doe", "F", 1950)
	root.Direction = core.DirectionRoot

	father := person("@I2@", "John Doe", "M", 1920)
	mother := person("@I3@", "Mary Smith", "F", 1922)
	father.Children = []*family.Record{
		person("@I4@", "Walter Doe", "M", 1890),
		person("@I5@", "Edith Stone", "F", 1893),
	}
	mother.Children = []*family.Record{
		person("@I6@", "Henry Smith", "M", 1895),
	}
	root.Ancestors = []*family.Record{father, mother}

	c1 := person("@I10@", "Anna Roe", "F", 1975)
	c2 := person("@I11@", "Ben Roe", "M", 1977)
	c3 := person("@I12@", "Cara Roe", "F", 1980)
	g1 := person("@I20@", "Dan Roe", "M", 2000)
	g1.Children = []*family.Record{person("@I30@", "Eve Roe", "F", 2024)}
	c1.Children = []*family.Record{g1, person("@I21@", "Fay Roe", "F", 2002)}
	c2.Children = []*family.Record{person("@I22@", "Gus Roe", "M", 2005)}
	root.Descendants = []*family.Record{c1, c2, c3}

	tag(root.Ancestors, core.DirectionAncestor)
	tag(root.Descendants, core.DirectionDescendant)
	return root
}

// Lonely returns a root with no ancestors and no descendants.
func Lonely() *family.Record {
	r := person("@I99@", "Solo Person", "", 1900)
	r.Direction = core.DirectionRoot
	return r
}

// Chain returns a single-direction record that is a straight line of n generations below the root.
func Chain(n int) *family.Record {
	root := person("@C0@", "Chain 0", "M", 1800)
	cur := root
	for i := 1; i <= n; i++ {
		next := person(fmt.Sprintf("@C%d@", i), fmt.Sprintf("Chain %d", i), "F", 1800+25*i)
		cur.Children = []*family.Record{next}
		cur = next
	}
	return root
}

// Wide returns a single-direction record with a root and n leaf children.
func Wide(n int) *family.Record {
	root := person("@W0@", "Wide Root", "M", 1800)
	for i := 1; i <= n; i++ {
		root.Children = append(root.Children, person(fmt.Sprintf("@W%d@", i), fmt.Sprintf("Wide %d", i), "F", 1830))
	}
	return root
}

func tag(list []*family.Record, dir core.Direction) {
	for _, r := range list {
		r.Direction = dir
		tag(r.Children, dir)
	}
}
