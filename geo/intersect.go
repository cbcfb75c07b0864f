package geo

// Intersect is the outcome of testing a region against another one.
type Intersect int

const (
	None Intersect = iota
	Intersects
	// Contains: the argument lies inside the receiver.
	Contains
	// Supersets: the receiver lies inside the argument.
	Supersets
)

func (i Intersect) String() string {
	switch i {
	case None:
		return "None"
	case Intersects:
		return "Intersects"
	case Contains:
		return "Contains"
	case Supersets:
		return "Supersets"
	}
	return "Intersect(?)"
}
