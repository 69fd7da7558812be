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
	"log/slog"

	"github.com/tombee/flowctl/internal/history"
	"github.com/tombee/flowctl/internal/templates"
)

// OpenHistory opens the history store selected by the environment.
// Callers must Close the store via history.Close when done.
func OpenHistory(logger *slog.Logger) (history.Store, error) {
	return history.Open(history.Config{
		Backend:   HistoryBackend(),
		Dir:       HistoryDir(),
		DBPath:    HistoryDBPath(),
		RedisAddr: RedisAddr(),
		Logger:    logger,
	})
}

// OpenTemplates opens the file-backed template store at the configured
// directory.
func OpenTemplates(logger *slog.Logger) *templates.FileStore {
	return templates.NewFileStore(TemplatesDir(), logger)
}
