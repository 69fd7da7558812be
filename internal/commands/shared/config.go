// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shared

import (
	"os"
	"path/filepath"
)

// Environment variables consulted for storage and tracing configuration.
const (
	EnvHistoryBackend = "FLOWCTL_HISTORY_BACKEND"
	EnvHistoryDir     = "FLOWCTL_HISTORY_DIR"
	EnvHistoryDB      = "FLOWCTL_HISTORY_DB"
	EnvRedisAddr      = "FLOWCTL_REDIS_ADDR"
	EnvTemplatesDir   = "FLOWCTL_TEMPLATES_DIR"
	EnvTrace          = "FLOWCTL_TRACE"
)

// ConfigDir returns the flowctl configuration directory, creating
// nothing. Defaults to <user config dir>/flowctl, falling back to
// .flowctl in the working directory when the platform dir is unknown.
func ConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".flowctl"
	}
	return filepath.Join(base, "flowctl")
}

// HistoryBackend returns the configured history backend name, or empty
// for the default.
func HistoryBackend() string {
	return os.Getenv(EnvHistoryBackend)
}

// HistoryDir returns the directory for the file history backend.
func HistoryDir() string {
	if dir := os.Getenv(EnvHistoryDir); dir != "" {
		return dir
	}
	return filepath.Join(ConfigDir(), "history")
}

// HistoryDBPath returns the sqlite database path for the history store.
func HistoryDBPath() string {
	if path := os.Getenv(EnvHistoryDB); path != "" {
		return path
	}
	return filepath.Join(ConfigDir(), "history.db")
}

// RedisAddr returns the redis address for the redis history backend.
func RedisAddr() string {
	return os.Getenv(EnvRedisAddr)
}

// TemplatesDir returns the directory for the saved flow template store.
func TemplatesDir() string {
	if dir := os.Getenv(EnvTemplatesDir); dir != "" {
		return dir
	}
	return filepath.Join(ConfigDir(), "templates")
}

// TraceEnabled reports whether span export to stderr is requested.
func TraceEnabled() bool {
	v := os.Getenv(EnvTrace)
	return v != "" && v != "0" && v != "false"
}
