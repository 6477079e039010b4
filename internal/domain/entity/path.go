package entity

// PathSet holds the simple paths discovered between two addresses
type PathSet struct {
	From      Address     `json:"from"`
	To        Address     `json:"to"`
	Paths     [][]Address `json:"paths"`
	PathCount int         `json:"pathCount"`
}

// NewPathSet creates an empty path set for a pair
func NewPathSet(from, to string) *PathSet {
	return &PathSet{
		From:  NormalizeAddress(from),
		To:    NormalizeAddress(to),
		Paths: [][]Address{},
	}
}

// Add records a copy of path
func (p *PathSet) Add(path []Address) {
	cp := make([]Address, len(path))
	copy(cp, path)
	p.Paths = append(p.Paths, cp)
	p.PathCount = len(p.Paths)
}
