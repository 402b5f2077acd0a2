package model

// Color is a discrete severity level for a single indicator.
// Ordering matters: higher is worse, and staleness forcing takes the
// max of the value-derived color and the staleness floor.
type Color int

const (
	Green Color = 0
	Amber Color = 1
	Red   Color = 2
)

// String returns the lowercase wire name of the color.
func (c Color) String() string {
	switch c {
	case Green:
		return "green"
	case Amber:
		return "amber"
	case Red:
		return "red"
	default:
		return "unknown"
	}
}

// Max returns the worse of two colors.
func (c Color) Max(other Color) Color {
	if other > c {
		return other
	}
	return c
}

// ParseColor maps a wire name back to a Color. Unrecognized names map to
// Green, matching the scoring treatment of unknown enum codes.
func ParseColor(s string) Color {
	switch s {
	case "amber":
		return Amber
	case "red":
		return Red
	default:
		return Green
	}
}
