// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/capstan-release/capstan/lib/forge"
	"github.com/capstan-release/capstan/lib/template"
)

// RepoOverride is the per-repository subset of the configuration.
// The file format is JSONC: JSON with comments and trailing commas,
// so repositories can annotate their release policy in place. Nil
// fields inherit the engine defaults.
type RepoOverride struct {
	MainBranch       *string   `json:"main_branch"`
	BranchPrefix     *string   `json:"branch_prefix"`
	VersionPrefix    *string   `json:"version_prefix"`
	ChangelogMarkers []string  `json:"changelog_markers"`
	Templates        *struct {
		Title       *string `json:"title"`
		Body        *string `json:"body"`
		ReleaseName *string `json:"release_name"`
	} `json:"templates"`
}

// ForRepo returns the effective configuration for a repository: the
// engine configuration with the repository's JSONC override file (if
// any) merged over it. The returned Config is a copy; the receiver is
// never modified.
func (c *Config) ForRepo(repo forge.RepoName) (*Config, error) {
	effective := *c

	if c.OverridesDir == "" {
		return &effective, nil
	}
	path := filepath.Join(c.OverridesDir, repo.Owner, repo.Name+".jsonc")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &effective, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading override for %s: %w", repo, err)
	}

	override, err := ParseOverride(data)
	if err != nil {
		return nil, fmt.Errorf("config: override for %s: %w", repo, err)
	}
	override.apply(&effective)

	if err := effective.Validate(); err != nil {
		return nil, fmt.Errorf("config: override for %s: %w", repo, err)
	}
	return &effective, nil
}

// ParseOverride decodes a JSONC repository override.
func ParseOverride(data []byte) (*RepoOverride, error) {
	var override RepoOverride
	if err := json.Unmarshal(jsonc.ToJSON(data), &override); err != nil {
		return nil, fmt.Errorf("parsing JSONC: %w", err)
	}
	if err := override.validate(); err != nil {
		return nil, err
	}
	return &override, nil
}

func (o *RepoOverride) validate() error {
	if o.MainBranch != nil && *o.MainBranch == "" {
		return fmt.Errorf("main_branch must not be empty")
	}
	if o.BranchPrefix != nil && *o.BranchPrefix == "" {
		return fmt.Errorf("branch_prefix must not be empty")
	}
	if o.Templates != nil {
		for name, tmpl := range map[string]*string{
			"templates.title":        o.Templates.Title,
			"templates.body":         o.Templates.Body,
			"templates.release_name": o.Templates.ReleaseName,
		} {
			if tmpl == nil {
				continue
			}
			if err := template.Validate(*tmpl); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}

// apply merges the override's set fields into configuration.
func (o *RepoOverride) apply(configuration *Config) {
	if o.MainBranch != nil {
		configuration.MainBranch = *o.MainBranch
	}
	if o.BranchPrefix != nil {
		configuration.BranchPrefix = *o.BranchPrefix
	}
	if o.VersionPrefix != nil {
		configuration.VersionPrefix = *o.VersionPrefix
	}
	if o.ChangelogMarkers != nil {
		configuration.ChangelogMarkers = o.ChangelogMarkers
	}
	if o.Templates != nil {
		if o.Templates.Title != nil {
			configuration.Templates.Title = *o.Templates.Title
		}
		if o.Templates.Body != nil {
			configuration.Templates.Body = *o.Templates.Body
		}
		if o.Templates.ReleaseName != nil {
			configuration.Templates.ReleaseName = *o.Templates.ReleaseName
		}
	}
}
