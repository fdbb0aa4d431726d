package database

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilityops/key-custody/internal/config"
)

func TestDSN(t *testing.T) {
	cfg := config.Config{
		DBUser: "guard",
		DBPass: "s3cret",
		DBHost: "db.internal",
		DBPort: "3307",
		DBName: "keycustody",
	}
	s := dsn(cfg)
	assert.Contains(t, s, "guard:s3cret@tcp(db.internal:3307)/keycustody")

	// The ledger stores UTC DATETIME at second resolution; ParseTime
	// and the UTC location are load-bearing for that contract.
	parsed, err := mysql.ParseDSN(s)
	require.NoError(t, err)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, time.UTC, parsed.Loc)
	assert.Equal(t, "utf8mb4", parsed.Params["charset"])
}

func TestDSNWithoutPassword(t *testing.T) {
	cfg := config.Config{DBUser: "guard", DBHost: "localhost", DBPort: "3306", DBName: "keycustody"}
	s := dsn(cfg)
	assert.Contains(t, s, "guard@tcp(localhost:3306)/keycustody")
}
