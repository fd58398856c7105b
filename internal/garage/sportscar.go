package garage

import "fmt"

const (
	// TurboBoost multiplies acceleration while the turbo is engaged.
	TurboBoost = 1.5
	// TurboCutoffSpeed is the speed under which braking drops the turbo.
	TurboCutoffSpeed = 30.0
)

// EngageTurbo turns the turbo on. The engine must be running.
func (v *Vehicle) EngageTurbo(h Hooks) bool {
	if v.kind != KindSportsCar {
		return v.reject(h, fmt.Sprintf("%s has no turbo", v.model))
	}
	if !v.engineOn {
		return v.reject(h, fmt.Sprintf("turn %s on before engaging the turbo", v.model))
	}
	if v.turbo {
		return v.reject(h, fmt.Sprintf("turbo of %s is already engaged", v.model))
	}
	v.turbo = true
	h.cue(CueTurbo)
	h.notice(fmt.Sprintf("turbo of %s engaged", v.model), SeveritySuccess, defaultNotice)
	h.committed()
	return true
}

// DisengageTurbo turns the turbo off. Doing so when it is already off is a
// silent no-op and reports false.
func (v *Vehicle) DisengageTurbo(h Hooks) bool {
	if !v.turbo {
		return false
	}
	v.turbo = false
	h.committed()
	return true
}

func (v *Vehicle) turboFactor() float64 {
	if v.turbo {
		return TurboBoost
	}
	return 1
}
