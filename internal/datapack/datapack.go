// Package datapack models datapacks on disk: validation of the pack layout,
// the mapping between function files and call identifiers, and filtered
// enumeration of function files.
package datapack

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidDatapack is returned when a directory does not have the layout of a datapack.
var ErrInvalidDatapack = errors.New("invalid datapack")

// LoadTagPath is the Lantern Load tag every Lantern Load datapack ships.
var LoadTagPath = filepath.Join(dataDir, "load", "tags", functionsDir, "load.json")

const packMetaFile = "pack.mcmeta"

// Datapack is a validated datapack root. It is read-only once opened.
type Datapack struct {
	// Path is the datapack root directory.
	Path string
	// Name is the display name derived from the directory name.
	Name string
	// MainNamespace is the namespace the pack's load function lives in.
	MainNamespace string
}

// Options controls datapack validation.
type Options struct {
	// LanternLoad requires the Lantern Load tag and derives the main namespace from it.
	LanternLoad bool `yaml:"lanternLoad" json:"lanternLoad"`
	// MainNamespace overrides the namespace derived from the load tag.
	MainNamespace string `yaml:"mainNamespace,omitempty" json:"mainNamespace,omitempty"`
}

// DefaultOptions returns the validation used when nothing else is configured.
func DefaultOptions() Options {
	return Options{LanternLoad: true}
}

// Open validates the directory at path and returns the datapack it holds.
func Open(path string, opts Options) (*Datapack, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: path to datapack does not exist: %s", ErrInvalidDatapack, path)
	}

	meta := filepath.Join(path, packMetaFile)
	if !isFile(meta) {
		return nil, fmt.Errorf("%w: datapack does not have a %s file: %s", ErrInvalidDatapack, packMetaFile, meta)
	}

	dp := &Datapack{
		Path: path,
		Name: DisplayName(path),
	}

	if opts.LanternLoad {
		tag := filepath.Join(path, LoadTagPath)
		if !isFile(tag) {
			return nil, fmt.Errorf("%w: datapack does not have a Lantern Load tag: %s", ErrInvalidDatapack, tag)
		}
		if opts.MainNamespace == "" {
			ns, err := namespaceFromLoadTag(path, tag)
			if err != nil {
				return nil, err
			}
			dp.MainNamespace = ns
		}
	}
	if opts.MainNamespace != "" {
		dp.MainNamespace = opts.MainNamespace
	}

	if dp.MainNamespace == "" {
		return nil, fmt.Errorf("%w: main namespace must be given if not a Lantern Load datapack", ErrInvalidDatapack)
	}
	if !isDir(dp.NamespaceDir()) {
		return nil, fmt.Errorf("%w: main namespace dir must exist: %s", ErrInvalidDatapack, dp.MainNamespace)
	}

	return dp, nil
}

// IsDatapack reports whether path holds a valid datapack.
func IsDatapack(path string, opts Options) bool {
	_, err := Open(path, opts)
	return err == nil
}

// NamespaceDir is the directory of the main namespace.
func (d *Datapack) NamespaceDir() string {
	return filepath.Join(d.Path, dataDir, d.MainNamespace)
}

func (d *Datapack) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Path)
}

// DisplayName derives the report name of a datapack from its directory. Every
// run of letters is title cased, so my_pack becomes My_Pack and pack2go
// becomes Pack2Go.
func DisplayName(path string) string {
	base := filepath.Base(filepath.Clean(path))
	caser := cases.Title(language.English)

	var b strings.Builder
	start := -1
	for i, r := range base {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			b.WriteString(caser.String(base[start:i]))
			start = -1
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		b.WriteString(caser.String(base[start:]))
	}
	return b.String()
}

type loadTag struct {
	Values []json.RawMessage `json:"values"`
}

func namespaceFromLoadTag(root, tagFile string) (string, error) {
	data, err := os.ReadFile(tagFile)
	if err != nil {
		return "", fmt.Errorf("%w: reading load tag: %v", ErrInvalidDatapack, err)
	}

	var tag loadTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return "", fmt.Errorf("%w: parsing load tag %s: %v", ErrInvalidDatapack, tagFile, err)
	}
	if len(tag.Values) == 0 {
		return "", fmt.Errorf("%w: load tag %s has no values", ErrInvalidDatapack, tagFile)
	}

	call, err := tagEntryID(tag.Values[len(tag.Values)-1])
	if err != nil {
		return "", fmt.Errorf("%w: load tag %s: %v", ErrInvalidDatapack, tagFile, err)
	}

	target := FunctionCallToPath(root, call)
	if !isFile(target) {
		return "", fmt.Errorf("%w: Lantern Load call to %s at %s does not exist; pass a main namespace explicitly to ignore this",
			ErrInvalidDatapack, call, target)
	}

	ns, _, ok := strings.Cut(strings.TrimPrefix(call, "#"), ":")
	if !ok || ns == "" {
		return "", fmt.Errorf("%w: load tag entry %q has no namespace", ErrInvalidDatapack, call)
	}
	return ns, nil
}

// tagEntryID accepts both plain string entries and {"id": ...} objects.
func tagEntryID(raw json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var entry struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return "", err
	}
	if entry.ID == "" {
		return "", errors.New("tag entry without id")
	}
	return entry.ID, nil
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func sortIDs(ids []CallID) {
	slices.Sort(ids)
}
