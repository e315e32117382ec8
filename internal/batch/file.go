// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// File is the on-disk batch input.
type File struct {
	Items []Item `yaml:"items"`
}

// ResultFile is the on-disk batch output.
type ResultFile struct {
	Results []Outcome         `yaml:"results"`
	Summary ResultFileSummary `yaml:"summary"`
}

// ResultFileSummary stores the batch counts and when it finished.
type ResultFileSummary struct {
	Completed int       `yaml:"completed"`
	Failed    int       `yaml:"failed"`
	Timestamp time.Time `yaml:"timestamp"`
}

// ReadFile loads batch items from a YAML file.
func ReadFile(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing batch file: %w", err)
	}
	return f.Items, nil
}

// WriteResults saves a batch summary and its results to a YAML file.
func WriteResults(path string, s Summary) error {
	rf := ResultFile{
		Results: s.Results,
		Summary: ResultFileSummary{
			Completed: s.Completed,
			Failed:    s.Failed,
			Timestamp: time.Now(),
		},
	}
	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
