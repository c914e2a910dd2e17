//go:build database

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/huangsam/kpiroll/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// exerciseStore runs the store lifecycle against a backend and checks the aggregated output.
func exerciseStore(t *testing.T, backend, connStr string) {
	t.Helper()
	env := []string{
		"KPIROLL_STORE_BACKEND=" + backend,
		"KPIROLL_STORE_DB_CONNECT=" + connStr,
	}

	_, err := runKpiroll(t, env, "store", "clear")
	require.NoError(t, err)

	_, err = runKpiroll(t, env, "store", "migrate")
	require.NoError(t, err)

	_, err = runKpiroll(t, env, "store", "import", writeRecordsCSV(t))
	require.NoError(t, err)

	// Re-importing replaces values instead of duplicating them
	_, err = runKpiroll(t, env, "store", "import", writeRecordsCSV(t))
	require.NoError(t, err)

	status, err := runKpiroll(t, env, "store", "status")
	require.NoError(t, err)
	assert.Contains(t, status, "Total Values: 16")
	assert.Contains(t, status, "Import Batches: 2")

	out, err := runKpiroll(t, env, "trends", "--source", "merged", "--granularity", "quarterly", "--output", "json")
	require.NoError(t, err)
	var result schema.TrendsResult
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)

	quarters := byLabel(result.Records)
	q1 := quarters["Jun'25"]
	require.NotNil(t, q1.Values["live_arr"])
	assert.Equal(t, 1200.0, *q1.Values["live_arr"], "stored values override the fixtures")
	assert.Equal(t, 102.0, *q1.Values["headcount"])

	_, err = runKpiroll(t, env, "store", "migrate", "--target-version", "0")
	require.NoError(t, err)
}

// TestStoreWithMySQL tests the kpiroll CLI with a MySQL backend.
func TestStoreWithMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "kpiroll",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/kpiroll", host, port.Port())
	exerciseStore(t, "mysql", connStr)
}

// TestStoreWithPostgres tests the kpiroll CLI with a PostgreSQL backend.
func TestStoreWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())
	exerciseStore(t, "postgresql", connStr)
}
