package sim

import (
	"encoding/binary"
	gomath "math"

	"github.com/zeebo/xxh3"

	"github.com/Faultbox/midgard-kcc/pkg/math"
)

// Hash returns a checksum of every body's position, velocity and grounded
// state in spawn order. Two runs over the same scene and inputs produce the
// same hash regardless of the worker count.
func (s *Simulation) Hash() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, 0, s.bodies.Len()*64)
	for el := s.bodies.Front(); el != nil; el = el.Next() {
		c := el.Value.Controller
		buf = binary.LittleEndian.AppendUint64(buf, uint64(el.Key))
		buf = appendVec(buf, c.Character.Position)
		buf = appendVec(buf, c.Character.Velocity)
		var flags byte
		if c.Grounded.Grounded {
			flags |= 1
		}
		if c.Grounded.PrevGrounded {
			flags |= 2
		}
		buf = append(buf, flags)
	}
	return xxh3.Hash(buf)
}

func appendVec(buf []byte, v math.Vec3) []byte {
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint64(buf, gomath.Float64bits(f))
	}
	return buf
}
