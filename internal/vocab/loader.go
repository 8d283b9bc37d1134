package vocab

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML override file on top of the defaults. Tables present in
// the file replace the built-in ones; question_cues entries replace per type.
// An empty path or a missing file yields the defaults.
func Load(path string, logger *slog.Logger) (*Vocabulary, error) {
	v := Default()
	if path == "" {
		return v, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Debug("vocabulary file does not exist, using defaults", "path", path)
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}

	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("parse vocabulary file %s: %w", path, err)
	}
	v.index()

	logger.Info("loaded vocabulary overrides", "path", path)
	return v, nil
}
