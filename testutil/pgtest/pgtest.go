// Copyright (c) 2025-present deep.rent GmbH (https://deep.rent)
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

// Package pgtest provides test helpers for running integration tests
// against a disposable Postgres instance managed by testcontainers. Tests
// are skipped when no container runtime is available, so the suite stays
// runnable on machines without Docker.
//
// Note: Because this package imports the "testing" standard library, it
// should only ever be imported from _test.go files.
package pgtest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/lib/pq" // registers the "postgres" driver
)

// Image is the container image used for disposable databases.
const Image = "postgres:16-alpine"

// Open starts a Postgres container and returns an open connection to it.
// The container and the connection are torn down automatically when the
// test completes. If the container cannot be started (typically because no
// Docker daemon is reachable), the calling test is skipped.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := run(func() (*postgres.PostgresContainer, error) {
		return postgres.Run(ctx, Image,
			postgres.WithDatabase("comb"),
			postgres.WithUsername("comb"),
			postgres.WithPassword("comb"),
			postgres.BasicWaitStrategies(),
		)
	})
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})
	if err != nil {
		t.Skipf("skipping: failed to start postgres container: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}
	return db
}

// run invokes f and converts panics into errors. When no Docker host can
// be resolved, the container libraries panic while probing the environment
// instead of returning an error; funneling that panic into the error path
// lets Open skip the test as documented.
func run[T any](f func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("container runtime unavailable: %v", r)
		}
	}()
	return f()
}
