package tmpi

import "github.com/molnplus/tmpi/pkg/tmpi/core"

// Group is an immutable, ordered set of workers; rank within the group is
// the index.
type Group struct {
	g *core.Group
}

// Size returns the number of members.
func (g *Group) Size() int { return g.g.Size() }

// Rank returns self's rank in g, or (0, false) if self is not a member.
func (g *Group) Rank(self *Self) (int, bool) {
	return g.g.Rank(self.inner.Worker().ID)
}

// Incl returns the subgroup consisting of the members at the given ranks,
// in the order given.
func (g *Group) Incl(ranks []int) (*Group, error) {
	ng, code := g.g.Incl(ranks)
	if !code.OK() {
		return nil, code
	}
	return &Group{g: ng}, nil
}

// Free releases g's reference, mirroring tMPI_Group_free. g itself must
// not be used for any further operation afterward.
func (g *Group) Free() {
	g.g.Release()
}
