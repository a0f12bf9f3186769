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
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

var supportedTypes = []string{"mysql", "postgres", "postgresql", "pgx", "sqlite", "sqlite3"}

// BaseDatabaseFactory creates and manages a configured database manager.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
}

// NewDatabaseFactory returns a new database factory using the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{logger: GetLogger()}
}

// CreateFromConfig builds a manager for cfg after applying DB_* environment
// overrides.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *Config) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	conn := &cfg.ConnectionConfig
	OverrideFromEnv(conn)
	if !slices.Contains(supportedTypes, conn.Type) {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", conn.Type, supportedTypes)
	}

	manager := &defaultDatabaseManager{
		config:          conn,
		initConfig:      cfg.DataInitConfig,
		logger:          f.logger,
		healthStatus:    &HealthStatus{},
		stopHealthCheck: make(chan struct{}),
	}
	f.manager = manager
	return manager, nil
}

// OverrideFromEnv replaces connection settings with DB_* environment values.
func OverrideFromEnv(cfg *ConnectionConfig) {
	if v := os.Getenv("DB_TYPE"); v != "" {
		cfg.Type = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DSN = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("DB_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.DBName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		cfg.SSLMode = v
	}
	if v := os.Getenv("DB_MAX_IDLE_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxIdleConns = n
		}
	}
	if v := os.Getenv("DB_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxOpenConns = n
		}
	}
	if v := os.Getenv("DB_CONN_MAX_LIFETIME"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ConnMaxLifetime = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("DB_ENABLE_RECONNECT"); v != "" {
		cfg.EnableReconnect = v == "true"
	}
	if v := os.Getenv("DB_ENABLE_QUERY_LOG"); v != "" {
		cfg.EnableQueryLog = v == "true"
	}
}

// InitializeDatabase connects and, when asked, runs the seed scripts.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, initData bool) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if initData {
		if err := f.manager.InitData(ctx); err != nil {
			return fmt.Errorf("failed to initialize data: %w", err)
		}
	}
	f.logger.Info("database initialization completed")
	return nil
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns the bun database, or nil before initialization.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
