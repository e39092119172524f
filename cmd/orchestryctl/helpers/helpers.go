// Package helpers holds orchestryctl's local config file handling,
// carried over from cli_go/helpers/helpers.go.
package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the CLI's persisted connection info.
type Config struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secret string `yaml:"secret"`
}

var (
	appName    = "autoscaler"
	ConfigFile string
)

func init() {
	dir, err := os.UserConfigDir()
	if err != nil {
		fmt.Println("error getting config directory:", err)
		os.Exit(1)
	}
	ConfigFile = filepath.Join(dir, appName, "config.yaml")
}

// SaveConfig writes host/port/secret to ConfigFile.
func SaveConfig(host string, port int, secret string) error {
	dir := filepath.Dir(ConfigFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	out, err := yaml.Marshal(&Config{Host: host, Port: port, Secret: secret})
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigFile, out, 0644)
}

// LoadConfig reads ConfigFile and returns the controller's base URL and
// configured secret.
func LoadConfig() (string, string, error) {
	if _, err := os.Stat(ConfigFile); os.IsNotExist(err) {
		return "", "", errors.New("config file not found")
	}
	data, err := os.ReadFile(ConfigFile)
	if err != nil {
		return "", "", err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", "", err
	}
	if cfg.Host == "" || cfg.Port == 0 {
		return "", "", errors.New("invalid config")
	}
	return fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port), cfg.Secret, nil
}

// CheckServiceRunning hits /health and exits the process with guidance if
// the controller is unreachable.
func CheckServiceRunning(apiURL string) bool {
	if apiURL == "" {
		fmt.Fprintln(os.Stderr, "orchestryctl is not configured")
		fmt.Fprintln(os.Stderr, "Please run 'orchestryctl config' to set it up.")
		os.Exit(1)
	}
	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(apiURL + "/health")
	if err != nil {
		fmt.Fprintln(os.Stderr, "autoscaler controller is not running.")
		os.Exit(1)
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
