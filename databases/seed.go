package databases

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/linesmerrill/dharma-case-api/models"
)

//go:embed seed/cases.yaml
var seedCases []byte

// LoadSeedCases decodes the demo cases bundled with the binary
func LoadSeedCases() ([]models.CaseFile, error) {
	return DecodeCases(seedCases)
}

// DecodeCases decodes a YAML list of cases and checks each has an id and a known status
func DecodeCases(data []byte) ([]models.CaseFile, error) {
	var cases []models.CaseFile
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("decode seed cases: %w", err)
	}
	for i, c := range cases {
		if c.ID == "" {
			return nil, fmt.Errorf("seed case %d has no id", i)
		}
		if !c.Status.Valid() {
			return nil, fmt.Errorf("seed case %s has unknown status %q", c.ID, c.Status)
		}
	}
	return cases, nil
}

// Seed inserts cases that are not stored yet and returns how many were added
func Seed(ctx context.Context, db CaseDatabase, cases []models.CaseFile) (int, error) {
	added := 0
	for _, c := range cases {
		err := db.InsertOne(ctx, c)
		if errors.Is(err, ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("seed %s: %w", c.ID, err)
		}
		added++
	}
	return added, nil
}
