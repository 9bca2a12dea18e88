// Package datapacktest builds throwaway datapacks on disk for tests.
package datapacktest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mcreport/internal/datapack"
)

// Pack is a datapack written below a test's temporary directory.
type Pack struct {
	t    testing.TB
	Root string
}

// New creates a Lantern Load datapack named name whose load tag calls
// <namespace>:load. The load function itself is written too.
func New(t testing.TB, name, namespace string) *Pack {
	t.Helper()
	return NewIn(t, t.TempDir(), name, namespace)
}

// NewIn is like New but places the datapack below dir.
func NewIn(t testing.TB, dir, name, namespace string) *Pack {
	t.Helper()

	p := &Pack{t: t, Root: filepath.Join(dir, name)}
	p.write(filepath.Join(p.Root, "pack.mcmeta"), `{"pack":{"pack_format":10,"description":"test"}}`)

	tag, err := json.Marshal(map[string][]string{"values": {namespace + ":load"}})
	if err != nil {
		t.Fatalf("marshal load tag: %v", err)
	}
	p.write(filepath.Join(p.Root, datapack.LoadTagPath), string(tag))
	p.Function(namespace+":load", "scoreboard objectives add load.status dummy")
	return p
}

// Function writes the function identified by call with the given body lines
// and returns the file path.
func (p *Pack) Function(call string, lines ...string) string {
	p.t.Helper()
	file := datapack.FunctionCallToPath(p.Root, call)
	p.write(file, strings.Join(lines, "\n")+"\n")
	return file
}

// File writes an arbitrary file relative to the datapack root.
func (p *Pack) File(rel, content string) string {
	p.t.Helper()
	file := filepath.Join(p.Root, filepath.FromSlash(rel))
	p.write(file, content)
	return file
}

func (p *Pack) write(file, content string) {
	p.t.Helper()
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		p.t.Fatalf("mkdir %s: %v", filepath.Dir(file), err)
	}
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		p.t.Fatalf("write %s: %v", file, err)
	}
}
