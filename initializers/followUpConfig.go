package initializers

import (
	"fmt"
	"os"

	"github.com/ShepherdLoop/models"
	"gopkg.in/yaml.v3"
)

type followUpConfigFile struct {
	Person_Types map[models.PersonType]models.FollowUpConfig `yaml:"person_types"`
}

// LoadFollowUpConfigTable overlays the entries in the YAML file at path onto the
// default table. An empty path returns the defaults.
//
//	person_types:
//	  Attendee:
//	    required_attempts: 5
//	    frequency: 2/week
//	    duration_in_days: 21
func LoadFollowUpConfigTable(path string) (models.FollowUpConfigTable, error) {
	table := models.DefaultFollowUpConfigs()
	if path == "" {
		return table, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read follow-up config: %w", err)
	}

	var file followUpConfigFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse follow-up config %s: %w", path, err)
	}

	for personType, cfg := range file.Person_Types {
		table[personType] = cfg
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}
