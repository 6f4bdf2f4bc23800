package chat

import (
	petname "github.com/dustinkirkland/golang-petname"
	"github.com/google/uuid"
)

// How many plain petnames to try before falling back to a suffixed one.
const nameAttempts = 8

// RandomName produces a plausible-unique default display name. Uniqueness
// is not guaranteed; callers check against the registry.
func RandomName() string {
	return petname.Generate(2, "-")
}

// ClaimDefaultName generates display names until one can be claimed in reg,
// suffixing with a random fragment once the generator keeps colliding. It
// returns the claimed name.
func ClaimDefaultName(reg *UserRegistry) string {
	for i := 0; i < nameAttempts; i++ {
		name := RandomName()
		if reg.Claim(name) {
			return name
		}
	}
	for {
		name := petname.Generate(1, "") + "-" + uuid.NewString()[:8]
		if reg.Claim(name) {
			return name
		}
	}
}
