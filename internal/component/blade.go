package component

// Blade is a single growing blade of grass.
// Pure data, zero methods; all mutations happen in System functions.
type Blade struct {
	Height float64
}
