package pmp

// Version information for the PMP model.
const (
	// Version is the current version of the package.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides build-time information about the PMP model.
type Info struct {
	// Version is the package version string.
	Version string

	// Slots is the number of PMP entry slots the model exposes.
	Slots int

	// Granularity is the smallest protectable region size in bytes.
	Granularity int
}

// GetInfo returns information about the PMP model.
//
// Example:
//
//	info := pmp.GetInfo()
//	fmt.Printf("PMP model %s, %d slots\n", info.Version, info.Slots)
func GetInfo() Info {
	return Info{
		Version:     Version,
		Slots:       SlotCount,
		Granularity: Granularity,
	}
}
