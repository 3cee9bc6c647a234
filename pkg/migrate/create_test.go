package migrate

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "add_asset_tags", sanitizeName("Add  Asset Tags!"))
	assert.Equal(t, "v2_index", sanitizeName("__v2--index__"))
	assert.Empty(t, sanitizeName("!!!"))
}

func TestCreateSQLMigrationRefusesExistingVersion(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	path, err := createSQLMigration(dir, "seed clinics", now)
	require.NoError(t, err)
	assert.Contains(t, path, "20240301090000_seed_clinics.sql")

	_, err = createSQLMigration(dir, "seed clinics", now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestValidateFS(t *testing.T) {
	valid := "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"

	tests := []struct {
		name    string
		files   fstest.MapFS
		wantErr string
	}{
		{
			name: "valid",
			files: fstest.MapFS{
				"20240301090000_a.sql": {Data: []byte(valid)},
				"README.md":            {Data: []byte("ignored")},
			},
		},
		{
			name:    "bad name",
			files:   fstest.MapFS{"create_assets.sql": {Data: []byte(valid)}},
			wantErr: "invalid migration filename",
		},
		{
			name:    "missing down",
			files:   fstest.MapFS{"20240301090000_a.sql": {Data: []byte("-- +goose Up\n")}},
			wantErr: "missing",
		},
		{
			name:    "down before up",
			files:   fstest.MapFS{"20240301090000_a.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")}},
			wantErr: "before",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFS(tt.files, ".")
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
