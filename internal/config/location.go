package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrLocationMissing is returned when the record sink has no table location.
var ErrLocationMissing = errors.New("record sink location is not configured")

// FeishuLocation identifies the bitable table that receives chat records.
type FeishuLocation struct {
	AppToken string `json:"app_token"`
	TableID  string `json:"table_id"`
	BaseURL  string `json:"base_url,omitempty"`
}

// Complete reports whether both identifiers are present.
func (l FeishuLocation) Complete() bool {
	return strings.TrimSpace(l.AppToken) != "" && strings.TrimSpace(l.TableID) != ""
}

// LoadFeishuLocation reads the location file at path.
func LoadFeishuLocation(path string) (FeishuLocation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FeishuLocation{}, fmt.Errorf("%w: %s not found", ErrLocationMissing, path)
		}
		return FeishuLocation{}, fmt.Errorf("read location file: %w", err)
	}
	var loc FeishuLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return FeishuLocation{}, fmt.Errorf("decode location file: %w", err)
	}
	loc.AppToken = strings.TrimSpace(loc.AppToken)
	loc.TableID = strings.TrimSpace(loc.TableID)
	loc.BaseURL = strings.TrimSpace(loc.BaseURL)
	return loc, nil
}

// SaveFeishuLocation writes loc to path, creating parent directories.
func SaveFeishuLocation(path string, loc FeishuLocation) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create location dir: %w", err)
	}
	data, err := json.MarshalIndent(loc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write location file: %w", err)
	}
	return nil
}

// ResolveFeishuLocation merges the location file with explicit overrides from cfg.
// Values set in cfg win over the file. The result must be complete.
func ResolveFeishuLocation(cfg Config) (FeishuLocation, error) {
	loc, fileErr := LoadFeishuLocation(cfg.LocationPath())
	if v := strings.TrimSpace(cfg.Feishu.AppToken); v != "" {
		loc.AppToken = v
	}
	if v := strings.TrimSpace(cfg.Feishu.TableID); v != "" {
		loc.TableID = v
	}
	if loc.BaseURL == "" {
		loc.BaseURL = cfg.Feishu.OpenBaseURL
	}
	if !loc.Complete() {
		if fileErr != nil {
			return FeishuLocation{}, fileErr
		}
		return FeishuLocation{}, fmt.Errorf("%w: app_token and table_id are required", ErrLocationMissing)
	}
	return loc, nil
}
