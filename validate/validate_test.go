package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/heroduel/game/engine"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const smallMap = `{
	"heroes": {"Fjorm": {"name": "Fjorm", "moveType": "infantry", "weaponType": "lance",
		"stats": {"hp": 42, "atk": 16, "spd": 35, "def": 27, "res": 32}, "weapons": ["Silver Lance"]}},
	"maps": {"small": {"layout": ["....", "....", "...."],
		"spawnsA": [{"x":0,"y":2},{"x":1,"y":2},{"x":2,"y":2},{"x":3,"y":2}],
		"spawnsB": [{"x":0,"y":0},{"x":1,"y":0},{"x":2,"y":0},{"x":3,"y":0}]}}
}`

func TestValidateDataset_Valid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "extra.json", smallMap)

	result := validateDataset(path)
	require.True(t, result.Valid, "errors: %v", result.Errors)
	joined := strings.Join(result.Errors, "\n")
	assert.Contains(t, joined, "✓ Heroes: 1")
	assert.Contains(t, joined, "✓ Map small: 4x3")
	assert.Contains(t, joined, "connected for cavalry")
}

func TestValidateDataset_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "broken json",
			content: `{"heroes": `,
			want:    "Failed to load dataset",
		},
		{
			name: "unknown weapon",
			content: `{"heroes": {"Fjorm": {"name": "Fjorm", "moveType": "infantry", "weaponType": "lance",
				"stats": {"hp": 42}, "weapons": ["Leiptr"]}}}`,
			want: `unknown weapon "Leiptr"`,
		},
		{
			name: "wall between the sides",
			content: `{"maps": {"split": {"layout": ["....", "####", "...."],
				"spawnsA": [{"x":0,"y":2},{"x":1,"y":2},{"x":2,"y":2},{"x":3,"y":2}],
				"spawnsB": [{"x":0,"y":0},{"x":1,"y":0},{"x":2,"y":0},{"x":3,"y":0}]}}}`,
			want: "cannot reach the enemy as infantry",
		},
		{
			name: "forest blocks cavalry",
			content: `{"maps": {"woods": {"layout": ["....", "FFFF", "...."],
				"spawnsA": [{"x":0,"y":2},{"x":1,"y":2},{"x":2,"y":2},{"x":3,"y":2}],
				"spawnsB": [{"x":0,"y":0},{"x":1,"y":0},{"x":2,"y":0},{"x":3,"y":0}]}}}`,
			want: "Unreachable for cavalry: spawn A (0,2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".json", tt.content)
			result := validateDataset(path)
			assert.False(t, result.Valid)
			assert.Contains(t, strings.Join(result.Errors, "\n"), tt.want)
		})
	}
}

func TestValidateConnectivity_DefaultMap(t *testing.T) {
	m := engine.DefaultMap()
	result := validateConnectivity(&m)
	assert.True(t, result.Valid, "errors: %v", result.Errors)
	assert.Len(t, result.Errors, 2)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "extra.json", smallMap)
	writeFile(t, dir, "teams/good.json", `[{"name": "Fjorm", "weapon": "Silver Lance"}, {"name": "Anna"}]`)
	writeFile(t, dir, "teams/bad.json", `[{"name": "Marth"}]`)
	writeFile(t, dir, "teams/garbage.json", `{"name": "Anna"}`)

	results, err := run(dir)
	require.NoError(t, err)
	require.Len(t, results, 4)

	byFile := make(map[string]ValidationResult)
	for _, r := range results {
		byFile[r.File] = r
	}

	assert.True(t, byFile["extra.json"].Valid)

	good := byFile[filepath.Join("teams", "good.json")]
	assert.True(t, good.Valid, "errors: %v", good.Errors)
	assert.Contains(t, good.Errors, "✓ Team: Fjorm, Anna")

	bad := byFile[filepath.Join("teams", "bad.json")]
	assert.False(t, bad.Valid)
	assert.Contains(t, bad.Errors[0], "Hero 1 name")

	assert.False(t, byFile[filepath.Join("teams", "garbage.json")].Valid)
}

func TestRun_BrokenCatalog(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{`)
	writeFile(t, dir, "teams/good.json", `[{"name": "Anna"}]`)

	results, err := run(dir)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Valid, r.File)
	}
}
