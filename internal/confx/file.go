// Package confx decodes configuration files. The format is picked from the
// file extension: .yaml/.yml use gopkg.in/yaml.v3, everything else JSON.
package confx

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeFile reads path and unmarshals it into dst.
func DecodeFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, dst)
	default:
		err = json.Unmarshal(data, dst)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}
