package config

import (
	"fmt"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Gitlab.validate(); err != nil {
		return fmt.Errorf("gitlab: %w", err)
	}
	if err := c.Sweep.validate(); err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	return nil
}

func (g *GitlabConfig) validate() error {
	if g.RootGroupID <= 0 {
		return fmt.Errorf("root_group_id must be > 0 (got %d)", g.RootGroupID)
	}
	if strings.TrimSpace(g.Branch) == "" {
		return fmt.Errorf("branch must not be empty")
	}
	if strings.TrimSpace(g.EngagementFile) == "" {
		return fmt.Errorf("engagement_file must not be empty")
	}
	if !strings.Contains(g.StateTagFormat, "%s") {
		return fmt.Errorf("state_tag_format must contain a %%s placeholder (got %q)", g.StateTagFormat)
	}

	g.SeedFiles = ParseFileList(g.SeedFilesRaw)
	for _, f := range g.SeedFiles {
		if strings.HasPrefix(f, "/") {
			return fmt.Errorf("seed file %q must be repository-relative", f)
		}
	}

	return nil
}

func (s *SweepConfig) validate() error {
	if s.StateInterval <= 0 {
		return fmt.Errorf("state_interval must be > 0 (got %v)", s.StateInterval)
	}
	if s.RefreshCheck <= 0 {
		return fmt.Errorf("refresh_check must be > 0 (got %v)", s.RefreshCheck)
	}
	return nil
}

// ParseFileList parses a comma-separated list of paths, trimming whitespace
// and dropping empty entries. An empty string returns a nil slice.
func ParseFileList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	files := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		files = append(files, p)
	}
	if len(files) == 0 {
		return nil
	}
	return files
}
