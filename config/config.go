// Package config exposes deployment-level configuration for the Sat Yoga
// web portal: embedded build identity plus environment variable getters.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("SY_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("SY_DEBUG") == "true"
}

func GetDBFolderPath() string {
	dbFolderPath := os.Getenv("SY_DB_FOLDER")
	if dbFolderPath == "" {
		dbFolderPath = "/var/lib/sy-portal"
	}
	return dbFolderPath
}

func GetDBPath() string {
	return fmt.Sprintf("%s/%s.db", GetDBFolderPath(), GetName())
}

func GetLogFolder() string {
	logFolderPath := os.Getenv("SY_LOG_FOLDER")
	if logFolderPath == "" {
		logFolderPath = "/var/log"
	}
	return logFolderPath
}

func GetListen() string {
	return os.Getenv("SY_LISTEN")
}

func GetPort() int {
	port := os.Getenv("SY_PORT")
	if port == "" {
		return 8080
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return 8080
	}
	return n
}

// GetCMSBaseURL returns the base URL of the content-management backend.
func GetCMSBaseURL() string {
	url := os.Getenv("SY_CMS_URL")
	if url == "" {
		url = "http://localhost:1337"
	}
	return strings.TrimRight(url, "/")
}

// GetCMSToken returns the read token for authenticated CMS collections.
func GetCMSToken() string {
	return os.Getenv("SY_CMS_TOKEN")
}

// GetBackendBaseURL returns the base URL of the application backend
// (auth, calendar, forms, recommendations, commerce).
func GetBackendBaseURL() string {
	url := os.Getenv("SY_BACKEND_URL")
	if url == "" {
		url = "http://localhost:8000"
	}
	return strings.TrimRight(url, "/")
}

// GetSessionSecret returns the secret used to authenticate and encrypt
// the session cookie. An empty value disables the portal at startup.
func GetSessionSecret() string {
	return os.Getenv("SY_SESSION_SECRET")
}

func GetTilopayBaseURL() string {
	url := os.Getenv("SY_TILOPAY_URL")
	if url == "" {
		url = "https://app.tilopay.com"
	}
	return strings.TrimRight(url, "/")
}

func GetTilopayAPIKey() string {
	return os.Getenv("SY_TILOPAY_API_KEY")
}

func GetTilopayAPIUser() string {
	return os.Getenv("SY_TILOPAY_API_USER")
}

func GetTilopayAPIPassword() string {
	return os.Getenv("SY_TILOPAY_API_PASSWORD")
}

// GetTilopayWebhookSecret returns the shared secret used to verify
// payment webhook signatures.
func GetTilopayWebhookSecret() string {
	return os.Getenv("SY_TILOPAY_WEBHOOK_SECRET")
}
