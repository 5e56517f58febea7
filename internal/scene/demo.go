package scene

import (
	_ "embed"
	"fmt"
)

//go:embed demo.yaml
var demoYAML []byte

// Demo returns the built-in demo level.
func Demo() (*Scene, error) {
	s, err := Parse(demoYAML)
	if err != nil {
		return nil, fmt.Errorf("scene: demo: %w", err)
	}
	return s, nil
}
