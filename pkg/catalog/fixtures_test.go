package catalog

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/mesh-intelligence/statcraft/pkg/types"
	"github.com/mesh-intelligence/statcraft/pkg/universe"
)

const pkgPath = "github.com/mesh-intelligence/statcraft/pkg/catalog"

type Vitals struct {
	Health    float32 `stat:"display=Health;category=Vitals"`
	MaxHealth float32 `stat:"category=Vitals"`
}

type Hero struct {
	Vitals
	Speed   float64 `stat:"category=Movement;description=Meters per second"`
	Level   int32   `stat:"category=Progression;hidden"`
	Gold    uint16  `stat:"category=Economy"`
	Name    string  `stat:"category=Identity"`
	armor   float32 `stat:""`
	Scratch float32 `stat:"-"`
	Plain   float32
}

type Goblin struct {
	Vitals
	Rage float32 `stat:"category=combat"`
}

func guid(typeName, field string) string {
	return types.StatGUID(pkgPath+"."+typeName, field)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newGameCatalog registers Hero and Goblin under module "game" and scans.
func newGameCatalog(t *testing.T, opts ...Option) (*universe.Registry, *Catalog) {
	t.Helper()
	reg := universe.NewRegistry()
	reg.Register("game", Hero{}, Goblin{})

	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	cat := New(reg, opts...)
	cat.Scan()
	return reg, cat
}

func mustLookup(t *testing.T, c *Catalog, id string) types.StatDescriptor {
	t.Helper()
	d, ok := c.Lookup(id)
	if !ok {
		t.Fatalf("descriptor %s not found", id)
	}
	return d
}
