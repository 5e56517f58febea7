package kcc

import "github.com/Faultbox/midgard-kcc/internal/collision"

// Contributor adjusts a character's velocity before it is resolved.
// Gravity, input and dampening are contributors.
type Contributor interface {
	Contribute(c *Controller, dt float64)
}

// ContributorFunc adapts a function to Contributor.
type ContributorFunc func(c *Controller, dt float64)

// Contribute implements Contributor.
func (f ContributorFunc) Contribute(c *Controller, dt float64) {
	f(c, dt)
}

// Tick runs one fixed step for one character. The order is fixed: velocity
// contributors, Resolve, the optional depenetration pass, DetectFloor, then
// UpdateGrounded. Anything that reads the result must run after Tick returns.
func Tick(caster collision.Caster, c *Controller, dt float64, contributors ...Contributor) Result {
	for _, k := range contributors {
		k.Contribute(c, dt)
	}
	res := Resolve(caster, c, dt)
	if c.Settings.Depenetrate && res.Stop != StopSkipped {
		res.Depenetration = Depenetrate(caster, c)
	}
	DetectFloor(caster, c)
	UpdateGrounded(c)
	return res
}
