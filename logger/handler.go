// Copyright 2025 Google LLC
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

package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

// handler is a minimal slog.Handler producing either a plain-text
// line shape (time="..." severity=LEVEL message="...") or a JSON
// shape ({"timestamp":{"seconds":...,"nanos":...},"severity":...,
// "message":...}). Structured attrs are deliberately unsupported: every
// call site here goes through Tracef/Debugf/.../Errorf with a single
// pre-formatted message, so WithAttrs/WithGroup are no-ops.
type handler struct {
	w     io.Writer
	level *slog.LevelVar
	json  bool
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	sev := severity(r.Level)
	if h.json {
		type ts struct {
			Seconds int64 `json:"seconds"`
			Nanos   int   `json:"nanos"`
		}
		payload := struct {
			Timestamp ts     `json:"timestamp"`
			Severity  string `json:"severity"`
			Message   string `json:"message"`
		}{
			Timestamp: ts{Seconds: r.Time.Unix(), Nanos: r.Time.Nanosecond()},
			Severity:  sev,
			Message:   r.Message,
		}
		enc, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(h.w, string(enc))
		return err
	}
	_, err := fmt.Fprintf(h.w, "time=%q severity=%s message=%q\n", r.Time.Format("2006/01/02 15:04:05.000000"), sev, r.Message)
	return err
}

// severity maps a slog.Level to the five named severities this package
// exposes.
func severity(level slog.Level) string {
	switch {
	case level < LevelDebug:
		return TRACE
	case level < LevelInfo:
		return DEBUG
	case level < LevelWarn:
		return INFO
	case level < LevelError:
		return WARNING
	default:
		return ERROR
	}
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *handler) WithGroup(name string) slog.Handler       { return h }
