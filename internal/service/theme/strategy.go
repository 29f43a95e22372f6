package theme

import "github.com/GintGld/clipper/internal/models"

// Strategy decides how the page switches to a new theme.
type Strategy interface {
	Plan(origin *models.Coords) models.TransitionPlan
}

// Animated reveals the new theme from the origin point
// using view transitions.
type Animated struct{}

func (Animated) Plan(origin *models.Coords) models.TransitionPlan {
	plan := models.TransitionPlan{Mode: models.TransitionAnimated}
	if origin != nil {
		o := *origin
		plan.Origin = &o
	}
	return plan
}

// Immediate swaps the theme at once.
type Immediate struct{}

func (Immediate) Plan(_ *models.Coords) models.TransitionPlan {
	return models.TransitionPlan{Mode: models.TransitionImmediate}
}

// StrategyFor picks the strategy matching client capabilities.
func StrategyFor(caps models.Capabilities) Strategy {
	if !caps.ViewTransitions || caps.ReducedMotion {
		return Immediate{}
	}
	return Animated{}
}
