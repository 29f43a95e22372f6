package models

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Opposite returns the theme a toggle switches to.
func (t Theme) Opposite() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

type Coords struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Capabilities of the client that asked for a theme toggle.
type Capabilities struct {
	ViewTransitions bool
	ReducedMotion   bool
}

type TransitionMode string

const (
	TransitionAnimated  TransitionMode = "animated"
	TransitionImmediate TransitionMode = "immediate"
)

// TransitionPlan tells the page how to apply a new theme.
type TransitionPlan struct {
	Mode   TransitionMode `json:"mode"`
	Origin *Coords        `json:"origin,omitempty"`
}
