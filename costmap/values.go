package costmap

// Cost is a single cell's cost byte. See spec.md §3 for the full lattice.
type Cost = byte

const (
	// Free marks a cell with no known obstacle cost.
	Free Cost = 0
	// InscribedInflated marks a cell where the robot footprint's
	// inscribed circle is guaranteed to collide if the robot's origin
	// is centered here.
	InscribedInflated Cost = 253
	// LethalObstacle marks a cell known to contain an obstacle.
	LethalObstacle Cost = 254
	// NoInformation marks a cell with unknown occupancy.
	NoInformation Cost = 255
)
