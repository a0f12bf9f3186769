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

	"github.com/tomoncle/microrm/utils"
	"github.com/uptrace/bun"
)

var (
	globalFactory *BaseDatabaseFactory
	DB            *bun.DB
)

// GetDB returns the global bun database.
func GetDB() *bun.DB {
	if globalFactory != nil {
		return globalFactory.GetDB()
	}
	return DB
}

func GetDatabaseFactory() *BaseDatabaseFactory {
	return globalFactory
}

// InitDB connects the global database from cfg and runs the seed scripts
// when DataInitConfig.AutoInitOnStartup is set.
func InitDB(cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if cfg.Logging.Level != "" {
		utils.ConfigureLogLevel(cfg.Logging.Level)
	}
	if cfg.Logging.Format != "" {
		utils.ConfigureConsoleLogFormat(cfg.Logging.Format)
	}

	factory := NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(context.Background(), cfg.DataInitConfig.AutoInitOnStartup); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	globalFactory = factory
	DB = manager.GetDB()
	return DB, nil
}

// InitDBFromFile loads a YAML config and calls InitDB.
func InitDBFromFile(path string) (*bun.DB, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return InitDB(cfg)
}

// CloseDB closes the global database connection.
func CloseDB() error {
	if globalFactory != nil {
		return globalFactory.Close()
	}
	return nil
}

func GetHealthStatus(ctx context.Context) *HealthStatus {
	if globalFactory != nil {
		return globalFactory.GetHealthStatus(ctx)
	}
	return &HealthStatus{LastError: "database not initialized"}
}

func GetDatabaseStats() *DBStats {
	if globalFactory != nil {
		return globalFactory.GetStats()
	}
	return &DBStats{}
}
