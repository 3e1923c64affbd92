package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/cgrente/profile-intake-platform/client"
)

var errMissingToken = errors.New("missing API token: pass --token, set INTAKE_API_TOKEN or add api_token to the config file")

// fileSettings is the YAML config file layout.
type fileSettings struct {
	APIURL   string `yaml:"api_url"`
	APIToken string `yaml:"api_token"`
}

// connection holds the flags every API command accepts.
type connection struct {
	url        string
	token      string
	configPath string
}

func (c *connection) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.url, "url", "", "API base URL (env INTAKE_API_URL)")
	fs.StringVar(&c.token, "token", "", "bearer token (env INTAKE_API_TOKEN)")
	fs.StringVar(&c.configPath, "config", "", "YAML config file (env INTAKE_CONFIG, default ~/.config/intake/config.yaml)")
}

// resolve applies flags, then the environment, then the config file.
func (c *connection) resolve() (baseURL, token string, err error) {
	file, err := loadFileSettings(c.configFile())
	if err != nil {
		return "", "", err
	}

	baseURL = firstNonEmpty(c.url, os.Getenv("INTAKE_API_URL"), file.APIURL, client.DefaultBaseURL)
	token = firstNonEmpty(c.token, os.Getenv("INTAKE_API_TOKEN"), file.APIToken)
	if token == "" {
		return "", "", errMissingToken
	}
	return baseURL, token, nil
}

func (c *connection) client() (*client.Client, error) {
	baseURL, token, err := c.resolve()
	if err != nil {
		return nil, err
	}
	return client.New(baseURL, token), nil
}

// configFile returns the explicit path or the default one. The default is
// allowed to be absent.
func (c *connection) configFile() string {
	if c.configPath != "" {
		return c.configPath
	}
	if path := os.Getenv("INTAKE_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".config", "intake", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func loadFileSettings(path string) (fileSettings, error) {
	var settings fileSettings
	if path == "" {
		return settings, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parse config %s: %w", path, err)
	}
	return settings, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
