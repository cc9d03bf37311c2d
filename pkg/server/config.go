package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tberthier/lanchat/pkg/datastore"
)

// FileConfig is the YAML form of the server configuration. Zero values
// leave the corresponding Config field untouched.
type FileConfig struct {
	Addr                 string `yaml:"addr,omitempty"`
	DBPath               string `yaml:"db_path,omitempty"`
	MetricsAddr          string `yaml:"metrics_addr,omitempty"`
	ShutdownGraceSeconds int    `yaml:"shutdown_grace_seconds,omitempty"`
	LogLevel             string `yaml:"log_level,omitempty"`
	LogFormat            string `yaml:"log_format,omitempty"`
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI config
	if err != nil {
		return FileConfig{}, fmt.Errorf("server: read config: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("server: parse config: %w", err)
	}
	return fc, nil
}

// Apply overlays the file values onto cfg, file values winning where set.
func (fc FileConfig) Apply(cfg Config) Config {
	if fc.Addr != "" {
		cfg.Addr = fc.Addr
	}
	if fc.DBPath != "" {
		cfg.DBPath = fc.DBPath
	}
	if fc.MetricsAddr != "" {
		cfg.MetricsAddr = fc.MetricsAddr
	}
	if fc.ShutdownGraceSeconds > 0 {
		cfg.ShutdownGrace = time.Duration(fc.ShutdownGraceSeconds) * time.Second
	}
	return cfg
}

// UserYAML represents a user in YAML export.
type UserYAML struct {
	ID        int64  `yaml:"id"`
	Username  string `yaml:"username"`
	CreatedAt string `yaml:"created_at"`
}

// UsersExport is the top-level YAML for user export.
type UsersExport struct {
	Users []UserYAML `yaml:"users"`
}

// ExportUsersYAML exports all accounts as YAML. Password material is never
// included.
func ExportUsersYAML(db datastore.DataStore) ([]byte, error) {
	users, err := db.ListUsers()
	if err != nil {
		return nil, err
	}

	export := UsersExport{}
	for _, u := range users {
		export.Users = append(export.Users, UserYAML{
			ID:        u.ID,
			Username:  u.Username,
			CreatedAt: u.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	return yaml.Marshal(&export)
}
