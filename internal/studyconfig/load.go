package studyconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/vk/capsulrun/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable pointing at a study
// configuration file.
const EnvConfigPath = "CAPSUL_CONFIG"

// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported study configuration format")

// Load reads a JSON (comments allowed) or YAML file chosen by extension,
// overlays it on the current settings, and applies the result. Keys absent
// from the file keep their current value; unknown keys are rejected.
func (sc *StudyConfig) Load(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading study configuration: %w", err)
	}
	settings := sc.Settings
	if err := decodeSettings(path, data, &settings); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	sc.SetStudyConfiguration(settings)
	ctxlog.FromContext(ctx).Debug("Study configuration loaded.", "path", path)
	return nil
}

// ReadConfiguration loads $CAPSUL_CONFIG, or the first of
// ~/.config/capsul/study_config.{yaml,yml,json} that exists. It returns the
// loaded path, or "" when there was nothing to load.
func (sc *StudyConfig) ReadConfiguration(ctx context.Context) (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, sc.Load(ctx, path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	for _, name := range []string{"study_config.yaml", "study_config.yml", "study_config.json"} {
		path := filepath.Join(home, ".config", "capsul", name)
		if _, err := os.Stat(path); err == nil {
			return path, sc.Load(ctx, path)
		}
	}
	return "", nil
}

func decodeSettings(path string, data []byte, out *Settings) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parsing JSON: %w", err)
		}
		return nil
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parsing YAML: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
