package trial

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/trial-eligibility-server/internal/domain"
)

// Definition is a trial as written in a YAML trial file.
type Definition struct {
	ID       string             `yaml:"id" json:"id"`
	Title    string             `yaml:"title" json:"title"`
	Acronym  string             `yaml:"acronym,omitempty" json:"acronym,omitempty"`
	Open     *bool              `yaml:"open,omitempty" json:"open,omitempty"`
	Criteria []string           `yaml:"criteria" json:"criteria"`
	Cohorts  []CohortDefinition `yaml:"cohorts,omitempty" json:"cohorts,omitempty"`
}

// CohortDefinition is a cohort of a trial with its additional criteria.
type CohortDefinition struct {
	ID       string   `yaml:"id" json:"id"`
	Title    string   `yaml:"title" json:"title"`
	Criteria []string `yaml:"criteria" json:"criteria"`
}

// IsOpen reports whether the trial accepts patients. Trials are open unless
// marked otherwise.
func (d *Definition) IsOpen() bool {
	return d.Open == nil || *d.Open
}

// Validate checks the structural requirements of a definition.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: trial id is required", domain.ErrInvalidTrial)
	}
	seen := make(map[string]bool, len(d.Cohorts))
	for _, cohort := range d.Cohorts {
		if strings.TrimSpace(cohort.ID) == "" {
			return fmt.Errorf("%w: trial %s has a cohort without id", domain.ErrInvalidTrial, d.ID)
		}
		if seen[cohort.ID] {
			return fmt.Errorf("%w: trial %s has duplicate cohort %s", domain.ErrInvalidTrial, d.ID, cohort.ID)
		}
		seen[cohort.ID] = true
	}
	return nil
}

// ParseDefinitions decodes one or more YAML documents holding trial definitions.
func ParseDefinitions(data []byte) ([]Definition, error) {
	var defs []Definition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var def Definition
		err := decoder.Decode(&def)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: decoding trial definition: %v", domain.ErrInvalidTrial, err)
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadDefinitions reads every *.yaml and *.yml file in dir, in name order.
func LoadDefinitions(dir string) ([]Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read trials directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	var defs []Definition
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read trial file %s: %w", file, err)
		}
		parsed, err := ParseDefinitions(data)
		if err != nil {
			return nil, fmt.Errorf("trial file %s: %w", file, err)
		}
		defs = append(defs, parsed...)
	}
	return defs, nil
}
