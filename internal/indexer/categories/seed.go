package categories

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ygggate/ygggate/internal/indexer/types"
)

//go:embed seed.yaml
var seedYAML []byte

// Seed returns the taxonomy bundled with the binary.
func Seed() ([]types.Category, error) {
	var categories []types.Category
	if err := yaml.Unmarshal(seedYAML, &categories); err != nil {
		return nil, fmt.Errorf("failed to parse category seed: %w", err)
	}
	return categories, nil
}
