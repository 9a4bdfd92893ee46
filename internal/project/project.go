package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/piwi3910/polynest/internal/model"
)

// projectVersion is bumped whenever the file format changes incompatibly.
const projectVersion = "1.0.0"

// Project bundles everything belonging to one nesting job: the part list,
// the sheet, the solver configuration, and optionally the last computed
// result.
type Project struct {
	Version  string            `json:"version"`
	Name     string            `json:"name"`
	SavedAt  time.Time         `json:"saved_at"`
	Parts    []model.Part      `json:"parts"`
	Sheet    model.Sheet       `json:"sheet"`
	Config   model.Config      `json:"config"`
	Result   *model.NestResult `json:"result,omitempty"`
}

// New creates an empty project with the default solver configuration.
func New(name string) Project {
	return Project{
		Version: projectVersion,
		Name:    name,
		Config:  model.DefaultConfig(),
	}
}

// Save writes the project to path as indented JSON, creating parent
// directories as needed.
func Save(path string, p Project) error {
	p.Version = projectVersion
	p.SavedAt = time.Now().UTC()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a project from path.
func Load(path string) (Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Project{}, fmt.Errorf("failed to read project file: %w", err)
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return Project{}, fmt.Errorf("failed to parse project file: %w", err)
	}
	if p.Version == "" {
		return Project{}, fmt.Errorf("invalid project file: missing version field")
	}
	return p, nil
}
