// README: Shared identifier and coordinate value objects.
package types

// ID is an opaque entity identifier (32-char lowercase hex in practice).
type ID string

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}
