package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/statcraft/pkg/sqlite"
	"github.com/mesh-intelligence/statcraft/pkg/types"
)

const ironRing = `
id: iron_ring
name: Iron Ring
kind: item
curve: diminishing
modifiers:
  - stat: example.com/game.Hero.Armor
    kind: flat
    magnitude: 4
  - stat: example.com/game.Hero.Speed
    kind: percent-additive
    magnitude: 0.05
`

const ghostBlade = `
id: ghost_blade
kind: item
modifiers:
  - stat: example.com/game.Hero.Ghost
    kind: flat
    magnitude: 1
`

// env is an isolated set of statcraft directories.
type env struct {
	configDir  string
	dataDir    string
	contentDir string
}

func newEnv(t *testing.T) env {
	t.Helper()
	root := t.TempDir()
	t.Setenv("STATCRAFT_CONFIG_DIR", "")
	t.Setenv("STATCRAFT_DATA_DIR", "")
	t.Setenv("STATCRAFT_CONTENT_DIR", "")
	t.Setenv("STATCRAFT_LOG_LEVEL", "")
	return env{
		configDir:  filepath.Join(root, "config"),
		dataDir:    filepath.Join(root, "data"),
		contentDir: filepath.Join(root, "content"),
	}
}

// run executes statcraft with the env's directories and returns stdout,
// stderr and the exit code.
func (e env) run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	full := append([]string{
		"--config-dir", e.configDir,
		"--data-dir", e.dataDir,
		"--content-dir", e.contentDir,
	}, args...)
	code := run(root, full, &stderr)
	return stdout.String(), stderr.String(), code
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, code := e.run(t, args...)
	require.Equal(t, exitSuccess, code, "statcraft %s: %s", strings.Join(args, " "), errOut)
	return out
}

func (e env) writeContent(t *testing.T, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(e.contentDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.contentDir, name), []byte(body), 0o644))
}

func heroSnapshot() types.CatalogSnapshot {
	hero := types.TypeIdentity{
		FullName:      "example.com/game.Hero",
		QualifiedName: "example.com/game.Hero, example.com/game",
		Module:        "example.com/game",
	}
	armor := types.NewStatDescriptor(hero, "Armor", types.StatTag{Category: "Combat", ShowInUI: true})
	speed := types.NewStatDescriptor(hero, "Speed", types.StatTag{Category: "Movement", Description: "Meters per second", ShowInUI: true})
	luck := types.NewStatDescriptor(hero, "Luck", types.StatTag{Category: "combat"})
	return types.CatalogSnapshot{
		ScanID:      "scan-1",
		ScannedAt:   time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		Count:       3,
		Source:      "./...",
		Descriptors: []types.StatDescriptor{armor, luck, speed},
	}
}

// seed stores the hero snapshot in the env's data directory.
func (e env) seed(t *testing.T) {
	t.Helper()
	store := sqlite.NewBackend()
	require.NoError(t, store.Attach(types.Config{Backend: types.BackendSQLite, DataDir: e.dataDir}))
	_, err := store.SaveSnapshot(heroSnapshot())
	require.NoError(t, err)
	require.NoError(t, store.Detach())
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "version")
	assert.Equal(t, "statcraft v"+Version+"\nmodule: "+modulePath+"\n", out)

	_, err := os.Stat(e.configDir)
	assert.True(t, os.IsNotExist(err), "version must not touch the config directory")
}

func TestInit(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun(t, "init")
	assert.Contains(t, out, "statcraft initialized")

	raw, err := os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "backend: sqlite")
	assert.FileExists(t, filepath.Join(e.dataDir, "statcraft.db"))

	t.Run("idempotent", func(t *testing.T) {
		out := e.mustRun(t, "--json", "init")
		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, false, got["config_written"])
	})
}

func TestConfigFileSettings(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte("backend: sqlite\nlog_level: loud\n"), 0o644))

	_, errOut, code := e.run(t, "categories")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, types.ErrLogLevelUnknown.Error())

	_, errOut, code = e.run(t, "--log-level", "debug", "--log-format", "xml", "categories")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "unknown log format")
}

func TestCommandsWithoutSnapshot(t *testing.T) {
	e := newEnv(t)
	for _, args := range [][]string{{"list"}, {"categories"}, {"show", "x"}, {"export", filepath.Join(t.TempDir(), "c.jsonl")}} {
		t.Run(args[0], func(t *testing.T) {
			_, errOut, code := e.run(t, args...)
			assert.Equal(t, exitUserError, code)
			assert.Contains(t, errOut, "no catalog snapshot")
		})
	}
}

func TestList(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	out := e.mustRun(t, "list")
	assert.Contains(t, out, "example.com/game.Hero.Armor")
	assert.Contains(t, out, "example.com/game.Hero.Speed")
	assert.NotContains(t, out, "Luck", "hidden stats are omitted by default")

	var descs []types.StatDescriptor
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "list", "--json", "--all", "--category", "COMBAT")), &descs))
	require.Len(t, descs, 2)
	assert.Equal(t, "example.com/game.Hero.Armor", descs[0].GUID)
	assert.Equal(t, "example.com/game.Hero.Luck", descs[1].GUID)

	out = e.mustRun(t, "list", "--json", "--category", "nothing")
	assert.Equal(t, "[]\n", out)
}

func TestCategories(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	var cats []string
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "--json", "categories")), &cats))
	assert.Equal(t, []string{"Combat", "Movement"}, cats)
}

func TestShow(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	out := e.mustRun(t, "show", "example.com/game.Hero.Speed")
	assert.Contains(t, out, "Meters per second")
	assert.Contains(t, out, "example.com/game.Hero, example.com/game")

	out = e.mustRun(t, "show", "--dump", "example.com/game.Hero.Speed")
	assert.Contains(t, out, "(types.StatDescriptor)")
	assert.Contains(t, out, `FieldName: (string) (len=5) "Speed"`)

	_, errOut, code := e.run(t, "show", "example.com/game.Hero.Mana")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, types.ErrStatNotFound.Error())
}

func TestExportImport(t *testing.T) {
	src := newEnv(t)
	src.seed(t)
	path := filepath.Join(t.TempDir(), "catalog.jsonl.zst")

	out := src.mustRun(t, "export", path)
	assert.Contains(t, out, "exported 3 stats from scan-1")

	dst := newEnv(t)
	out = dst.mustRun(t, "import", path)
	assert.Contains(t, out, "imported 3 stats as scan-1")

	var descs []types.StatDescriptor
	require.NoError(t, json.Unmarshal([]byte(dst.mustRun(t, "list", "--json", "--all")), &descs))
	assert.Equal(t, heroSnapshot().Descriptors, descs)

	_, _, code := dst.run(t, "export", "--scan", "missing", path)
	assert.Equal(t, exitUserError, code)

	_, _, code = dst.run(t, "import", filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.Equal(t, exitUserError, code)
}

func TestScan(t *testing.T) {
	e := newEnv(t)

	var got struct {
		ScanID string           `json:"scan_id"`
		Count  int              `json:"count"`
		Report types.ScanReport `json:"report"`
	}
	out := e.mustRun(t, "--json", "scan", "--dir", filepath.Join("..", "source", "testdata", "game"), "./...")
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotEmpty(t, got.ScanID)
	assert.Equal(t, 6, got.Count)
	assert.Equal(t, []string{"example.com/game/broken"}, got.Report.SkippedModules)

	out = e.mustRun(t, "show", "example.com/game/gear.Loadout.Weight")
	assert.Contains(t, out, "Inventory")

	t.Run("rescan reports no changes", func(t *testing.T) {
		out := e.mustRun(t, "--json", "scan", "--dir", filepath.Join("..", "source", "testdata", "game"))
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, 0, got.Report.Added)
		assert.Equal(t, 0, got.Report.Removed)
	})
}

func TestValidate(t *testing.T) {
	e := newEnv(t)
	e.writeContent(t, "ring.yaml", ironRing)

	t.Run("without snapshot", func(t *testing.T) {
		out := e.mustRun(t, "validate")
		assert.Contains(t, out, "1 definitions")
	})

	e.seed(t)

	t.Run("known stats", func(t *testing.T) {
		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "--json", "validate")), &got))
		assert.Equal(t, true, got["checked"])
		assert.Equal(t, float64(1), got["definitions"])
		assert.Len(t, got["digest"], 64)
	})

	t.Run("unknown stat", func(t *testing.T) {
		e.writeContent(t, "blade.yaml", ghostBlade)
		out, errOut, code := e.run(t, "validate")
		assert.Equal(t, exitUserError, code)
		assert.Contains(t, out, "ghost_blade: unknown stat example.com/game.Hero.Ghost")
		assert.Contains(t, errOut, "1 modifiers reference unknown stats")
	})

	t.Run("schema violation", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "bad")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: x\nkind: weapon\nmodifiers: []\n"), 0o644))
		_, errOut, code := e.run(t, "validate", dir)
		assert.Equal(t, exitUserError, code)
		assert.Contains(t, errOut, types.ErrDefinitionInvalid.Error())
	})
}

func TestSimulate(t *testing.T) {
	e := newEnv(t)
	e.writeContent(t, "ring.yaml", ironRing)

	var got struct {
		Results []simulation       `json:"results"`
		Values  map[string]float32 `json:"values"`
	}
	out := e.mustRun(t, "--json", "simulate",
		"--base", "example.com/game.Hero.Armor=10",
		"--base", "example.com/game.Hero.Speed=5",
		"--item", "iron_ring",
		"--count", "3",
	)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Results, 2)

	armor := got.Results[0]
	assert.Equal(t, "example.com/game.Hero.Armor", armor.Stat)
	assert.Equal(t, 10.0, armor.Breakdown.Base)
	assert.Equal(t, 18.0, armor.Breakdown.Value, "diminishing: 4 + 2 + 2")
	assert.Equal(t, float32(18), got.Values["example.com/game.Hero.Armor"])

	speed := got.Results[1]
	assert.InDelta(t, 5.5, speed.Breakdown.Value, 1e-6)

	t.Run("single stat text", func(t *testing.T) {
		out := e.mustRun(t, "simulate", "--item", "iron_ring", "--stat", "example.com/game.Hero.Armor")
		assert.Contains(t, out, "example.com/game.Hero.Armor")
		assert.Contains(t, out, "-> 4")
		assert.NotContains(t, out, "Speed")
	})

	t.Run("errors", func(t *testing.T) {
		for _, args := range [][]string{
			{"simulate"},
			{"simulate", "--item", "missing"},
			{"simulate", "--item", "iron_ring", "--base", "nonsense"},
			{"simulate", "--item", "iron_ring", "--stat", "example.com/game.Hero.Mana"},
		} {
			_, _, code := e.run(t, args...)
			assert.Equal(t, exitUserError, code, "%v", args)
		}
	})
}

func TestParseBase(t *testing.T) {
	tests := []struct {
		arg     string
		guid    string
		value   float32
		wantErr bool
	}{
		{arg: "game.Hero.Health=100", guid: "game.Hero.Health", value: 100},
		{arg: " game.Hero.Speed = 2.5 ", guid: "game.Hero.Speed", value: 2.5},
		{arg: "game.Hero.Speed", wantErr: true},
		{arg: "=3", wantErr: true},
		{arg: "game.Hero.Speed=fast", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			guid, value, err := parseBase(tt.arg)
			if tt.wantErr {
				assert.ErrorIs(t, err, errUser)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.guid, guid)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestDiffDescriptors(t *testing.T) {
	d := func(guid string) types.StatDescriptor { return types.StatDescriptor{GUID: guid} }
	added, removed := diffDescriptors(
		[]types.StatDescriptor{d("a"), d("b"), d("c")},
		[]types.StatDescriptor{d("b"), d("c"), d("d"), d("e")},
	)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, removed)
}
