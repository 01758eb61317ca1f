package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/featherbox/internal/config"
)

// projectFile is the on-disk YAML shape the CLI parses before handing
// already-typed config structs to the core. YAML parsing is explicitly the
// CLI's job, not the core's (spec.md §1): internal/config never touches a
// file.
type projectFile struct {
	Storage     config.StorageConfig             `yaml:"storage"`
	Database    config.DatabaseConfig            `yaml:"database"`
	Connections map[string]config.ConnectionSpec `yaml:"connections"`
	Adapters    []config.AdapterConfig           `yaml:"adapters"`
	Models      []config.ModelConfig             `yaml:"models"`
}

func loadProjectFile(path string) (config.ProjectConfig, []config.AdapterConfig, []config.ModelConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return config.ProjectConfig{}, nil, nil, fmt.Errorf("read project file: %w", err)
	}

	var pf projectFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return config.ProjectConfig{}, nil, nil, fmt.Errorf("parse project file: %w", err)
	}

	project := config.ProjectConfig{
		Storage:     pf.Storage,
		Database:    pf.Database,
		Connections: pf.Connections,
	}

	if err := config.ValidateAll(project, pf.Adapters, pf.Models); err != nil {
		return config.ProjectConfig{}, nil, nil, err
	}

	return project, pf.Adapters, pf.Models, nil
}
