package energy

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the YAML file configuration. CLI flags override any field the
// operator sets on the command line.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	StorageDir string `yaml:"storage_dir"`
	ManifestDB string `yaml:"manifest_db"`
	Debug      bool   `yaml:"debug"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddr: ":8080",
		StorageDir: "storage",
		ManifestDB: filepath.Join("storage", "manifest.db"),
	}
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = "storage"
	}
	if cfg.ManifestDB == "" {
		cfg.ManifestDB = filepath.Join(cfg.StorageDir, "manifest.db")
	}
	return &cfg, nil
}
