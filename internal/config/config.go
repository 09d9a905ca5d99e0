package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	InputPath   string
	OutputDir   string
	RosterPath  string
	MappingPath string
	DBPath      string

	WatchDir         string
	WatchIntervalSec int

	LogLevel  string
	LogFormat string

	SFTPHost       string
	SFTPPort       int
	SFTPUser       string
	SFTPPassword   string
	SFTPRemoteDir  string
	// SFTPKnownHosts is the known_hosts file used to verify the server.
	// Empty means ~/.ssh/known_hosts.
	SFTPKnownHosts string
	SFTPInsecure   bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	outputDir := getEnv("OUTPUT_DIR", filepath.Join(cwd, "out"))
	cfg := Config{
		InputPath:   getEnv("INPUT_PATH", filepath.Join(cwd, "input_data.xlsx")),
		OutputDir:   outputDir,
		RosterPath:  getEnv("ROSTER_PATH", filepath.Join(outputDir, "manager_emails.xlsx")),
		MappingPath: getEnv("MAPPING_PATH", ""),
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),

		WatchDir:         getEnv("WATCH_DIR", filepath.Join(cwd, "inbox")),
		WatchIntervalSec: getEnvInt("WATCH_INTERVAL_SEC", 60),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		SFTPHost:       getEnv("SFTP_HOST", ""),
		SFTPPort:       getEnvInt("SFTP_PORT", 22),
		SFTPUser:       getEnv("SFTP_USER", ""),
		SFTPPassword:   getEnv("SFTP_PASS", ""),
		SFTPRemoteDir:  getEnv("SFTP_REMOTE_DIR", "/"),
		SFTPKnownHosts: getEnv("SFTP_KNOWN_HOSTS", ""),
		SFTPInsecure:   getEnvBool("SFTP_INSECURE_HOST_KEY", false),
	}

	return cfg, nil
}

// PublishEnabled reports whether report files should be uploaded after a run.
func (c Config) PublishEnabled() bool {
	return strings.TrimSpace(c.SFTPHost) != ""
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
