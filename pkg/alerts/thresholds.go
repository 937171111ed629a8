package alerts

import (
	"fmt"
	"os"

	"github.com/enviromon/enviromon/pkg/model"
	"gopkg.in/yaml.v3"
)

// LoadThresholds reads alert limits from a YAML file. Keys missing from
// the file keep their stock defaults.
func LoadThresholds(path string) (model.Thresholds, error) {
	th := model.DefaultThresholds()

	data, err := os.ReadFile(path)
	if err != nil {
		return th, fmt.Errorf("read thresholds file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &th); err != nil {
		return th, fmt.Errorf("parse thresholds file %s: %w", path, err)
	}

	if err := validateThresholds(th); err != nil {
		return th, fmt.Errorf("thresholds file %s: %w", path, err)
	}

	return th, nil
}

func validateThresholds(th model.Thresholds) error {
	if th.HumidityLow < 0 || th.HumidityLow > 100 {
		return fmt.Errorf("humidity_low %g outside [0, 100]", th.HumidityLow)
	}
	if th.DistanceClose < 0 {
		return fmt.Errorf("distance_close %d is negative", th.DistanceClose)
	}
	return nil
}
