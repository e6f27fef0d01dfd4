package seedsource

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads and parses the municipality input JSON at path. A
// malformed document is a Config-class error (fatal, exit 1), so the
// caller is expected to surface it that way.
func Load(path string) ([]Municipality, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}

	var municipalities []Municipality
	if err := json.Unmarshal(content, &municipalities); err != nil {
		return nil, fmt.Errorf("parse input file: %w", err)
	}

	return municipalities, nil
}

// SelectSeeds applies the parent-vs-grand_parent rule: if the sum of
// parent's values is at least threshold, every parent key becomes a
// seed; otherwise every grand_parent key becomes a seed. A municipality
// with both maps empty yields no seeds.
func SelectSeeds(m Municipality, threshold int) []Seed {
	parentSum := 0
	for _, count := range m.Parent {
		parentSum += count
	}

	source := m.GrandParent
	if parentSum >= threshold {
		source = m.Parent
	}

	seeds := make([]Seed, 0, len(source))
	for seedURL := range source {
		seeds = append(seeds, Seed{
			Prefecture: m.Prefecture,
			City:       m.City,
			SeedURL:    seedURL,
		})
	}
	return seeds
}

// SelectAll runs SelectSeeds over every municipality in the input.
func SelectAll(municipalities []Municipality, threshold int) []Seed {
	var all []Seed
	for _, m := range municipalities {
		all = append(all, SelectSeeds(m, threshold)...)
	}
	return all
}
