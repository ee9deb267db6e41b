package extract

import (
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// layoutFile is the on-disk shape of an extra-layouts YAML file:
//
//	layouts:
//	  - name: session_word
//	    pattern: '(?i)\bsesio\s+(?P<seq>\d+)\b...'
type layoutFile struct {
	Layouts []struct {
		Name    string `yaml:"name"`
		Pattern string `yaml:"pattern"`
	} `yaml:"layouts"`
}

// requiredGroups are the named groups every layout pattern must bind.
var requiredGroups = []string{"day", "month", "year", "hour", "minute"}

// LoadLayouts reads additional accepted layouts from a YAML file. They slot
// in after the builtin layouts, in file order.
func LoadLayouts(path string) ([]Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read layouts %s", path)
	}

	var lf layoutFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, eris.Wrap(err, "extract: parse layouts")
	}

	layouts := make([]Layout, 0, len(lf.Layouts))
	for _, entry := range lf.Layouts {
		if entry.Name == "" {
			return nil, eris.New("extract: layout missing name")
		}
		re, err := regexp.Compile(entry.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "extract: layout %s: compile pattern", entry.Name)
		}
		groups := make(map[string]bool)
		for _, g := range re.SubexpNames() {
			groups[g] = true
		}
		for _, g := range requiredGroups {
			if !groups[g] {
				return nil, eris.Errorf("extract: layout %s: pattern missing group %q", entry.Name, g)
			}
		}
		layouts = append(layouts, Layout{Name: entry.Name, re: re})
	}
	return layouts, nil
}
