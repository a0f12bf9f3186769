/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var (
	selectColor = color.New(color.FgGreen)
	insertColor = color.New(color.FgBlue)
	updateColor = color.New(color.FgYellow)
	deleteColor = color.New(color.FgMagenta)
	otherColor  = color.New(color.FgRed)
	tagColor    = color.New(color.FgCyan)
	slowColor   = color.New(color.BgYellow, color.FgHiWhite)
	errColor    = color.New(color.BgRed, color.FgHiWhite)
)

// StatementLogHook prints every statement bun executes. The environment
// variable named by envName overrides enabled: "0" or "" disables, "2"
// also prints successful statements.
type StatementLogHook struct {
	envName string
	enabled bool
	verbose bool
	writer  io.Writer
}

var _ bun.QueryHook = (*StatementLogHook)(nil)

func NewStatementLogHook(envName string, enabled, verbose bool, w io.Writer) *StatementLogHook {
	if w == nil {
		w = os.Stderr
	}
	return &StatementLogHook{envName: envName, enabled: enabled, verbose: verbose, writer: w}
}

func (h *StatementLogHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *StatementLogHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	enabled := h.enabled
	verbose := h.verbose
	if env, ok := os.LookupEnv(h.envName); ok {
		enabled = env != "" && env != "0"
		verbose = env == "2"
	}
	if !enabled {
		return
	}
	if !verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	now := time.Now()
	args := []interface{}{
		now.Format("2006-01-02 15:04:05.000"),
		tagColor.Sprintf("%10s", "[SQL]"),
		fmt.Sprintf("%12s", now.Sub(event.StartTime).Round(time.Microsecond)),
		" ", operationColor(event).Sprint(event.Query),
	}
	if event.Err != nil {
		typ := reflect.TypeOf(event.Err).String()
		args = append(args, "\t", errColor.Sprintf(" %s: %s ", typ, event.Err.Error()))
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

func operationColor(event *bun.QueryEvent) *color.Color {
	switch event.Operation() {
	case "SELECT":
		return selectColor
	case "INSERT":
		return insertColor
	case "UPDATE":
		return updateColor
	case "DELETE":
		return deleteColor
	default:
		return otherColor
	}
}

// SlowQueryHook warns through the logger about statements slower than
// slowTime.
type SlowQueryHook struct {
	slowTime time.Duration
	logger   Logger
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func NewSlowQueryHook(slowTime time.Duration, logger Logger) *SlowQueryHook {
	return &SlowQueryHook{slowTime: slowTime, logger: logger}
}

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil || h.logger == nil {
		return
	}
	duration := time.Since(event.StartTime)
	if duration > h.slowTime {
		h.logger.Warn(slowColor.Sprint("slow query detected"),
			"duration", duration,
			"slow_threshold", h.slowTime,
			"query", event.Query,
		)
	}
}

// ExecutedStatement is one statement seen by a StatementRecorder.
type ExecutedStatement struct {
	Operation string
	Query     string
	Err       error
}

// StatementRecorder keeps every statement bun executes. It is meant for
// tests asserting on generated SQL.
type StatementRecorder struct {
	mu         sync.Mutex
	statements []ExecutedStatement
}

var _ bun.QueryHook = (*StatementRecorder)(nil)

func (r *StatementRecorder) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (r *StatementRecorder) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements = append(r.statements, ExecutedStatement{
		Operation: event.Operation(),
		Query:     event.Query,
		Err:       event.Err,
	})
}

// Statements returns the recorded statements, oldest first.
func (r *StatementRecorder) Statements() []ExecutedStatement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ExecutedStatement(nil), r.statements...)
}

// Last returns the most recent statement of the given operation, e.g.
// "INSERT".
func (r *StatementRecorder) Last(operation string) (ExecutedStatement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.statements) - 1; i >= 0; i-- {
		if strings.EqualFold(r.statements[i].Operation, operation) {
			return r.statements[i], true
		}
	}
	return ExecutedStatement{}, false
}

func (r *StatementRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements = nil
}
