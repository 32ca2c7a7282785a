package component

// Position stores an entity's location on the meadow plane.
type Position struct {
	X float64
	Y float64
}
