package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type SiteController struct {
	ID       string `yaml:"id"`
	Location string `yaml:"location"`
}

// Site is the fixed fleet description: which controllers exist and where they are.
type Site struct {
	Namespace   string           `yaml:"namespace"`
	Controllers []SiteController `yaml:"controllers"`
}

func LoadSite(path string) (*Site, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var site Site
	if err := yaml.Unmarshal(raw, &site); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
	}

	seen := map[string]bool{}
	for _, c := range site.Controllers {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: %s: controller without id", ErrInvalidDocument, path)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: %s: duplicate controller %q", ErrInvalidDocument, path, c.ID)
		}
		seen[c.ID] = true
	}
	return &site, nil
}

// Location returns the physical location of a controller, false for unknown controllers.
func (s *Site) Location(controllerID string) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, c := range s.Controllers {
		if c.ID == controllerID && c.Location != "" {
			return c.Location, true
		}
	}
	return "", false
}

func (s *Site) ControllerIDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.Controllers))
	for _, c := range s.Controllers {
		ids = append(ids, c.ID)
	}
	return ids
}
