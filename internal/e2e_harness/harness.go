// Package e2e_harness holds lightweight runners for dependencies used by
// end-to-end tests of the import/export pipeline.
package e2e_harness

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// bootstrapSQL creates the pipeline tables inside a fresh test database.
const bootstrapSQL = `
CREATE TABLE employees (
	id UUID PRIMARY KEY,
	full_name TEXT NOT NULL,
	email TEXT NOT NULL
);

CREATE TABLE form_templates (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	template_type TEXT NOT NULL DEFAULT 'main'
);

CREATE TABLE form_fields (
	id BIGSERIAL PRIMARY KEY,
	template_id BIGINT NOT NULL REFERENCES form_templates(id),
	label TEXT NOT NULL,
	field_type TEXT NOT NULL,
	is_required BOOLEAN NOT NULL DEFAULT FALSE,
	options TEXT[] NOT NULL DEFAULT '{}',
	field_order INT NOT NULL DEFAULT 0,
	validation_rules JSONB
);

CREATE TABLE submissions (
	id BIGSERIAL PRIMARY KEY,
	template_id BIGINT NOT NULL REFERENCES form_templates(id),
	owner_id UUID NOT NULL REFERENCES employees(id),
	status TEXT NOT NULL,
	submitted_at TIMESTAMPTZ,
	reviewed_by TEXT,
	comments TEXT
);

CREATE TABLE responses (
	submission_id BIGINT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
	field_id BIGINT NOT NULL REFERENCES form_fields(id),
	value TEXT NOT NULL,
	PRIMARY KEY (submission_id, field_id)
);
`

// TestHarness holds the containers and handles shared by E2E tests.
type TestHarness struct {
	PGContainer testcontainers.Container
	PGDSN       string
	PGDB        *sql.DB
}

// StartPostgres starts a postgres container and returns a DSN.
// It waits until Postgres is reachable. Caller is responsible for calling StopPostgres.
func (h *TestHarness) StartPostgres(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", err
	}
	h.PGContainer = container

	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	mapped, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", err
	}
	dsn := fmt.Sprintf("postgres://postgres:password@%s:%s/postgres?sslmode=disable", host, mapped.Port())
	h.PGDSN = dsn

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return "", err
	}
	deadline := time.Now().Add(20 * time.Second)
	for {
		if err := db.PingContext(ctx); err == nil {
			h.PGDB = db
			return dsn, nil
		}
		if time.Now().After(deadline) {
			db.Close()
			return "", fmt.Errorf("postgres did not become ready: %w", err)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// Bootstrap applies the pipeline schema to the running database.
func (h *TestHarness) Bootstrap(ctx context.Context) error {
	if h.PGDB == nil {
		return fmt.Errorf("postgres is not running")
	}
	if _, err := h.PGDB.ExecContext(ctx, bootstrapSQL); err != nil {
		return fmt.Errorf("apply bootstrap schema: %w", err)
	}
	return nil
}

// StopPostgres stops the Postgres container and closes the DB handle.
func (h *TestHarness) StopPostgres(ctx context.Context) error {
	if h.PGDB != nil {
		h.PGDB.Close()
		h.PGDB = nil
	}
	if h.PGContainer != nil {
		if err := h.PGContainer.Terminate(ctx); err != nil {
			return err
		}
		h.PGContainer = nil
	}
	return nil
}
