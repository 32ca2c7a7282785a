package component

// Robot is the mobile actor (the mower). Data only; no system drives it yet.
type Robot struct {
	Radius        float64
	CuttingHeight float64 // height the cutter operates at
}
