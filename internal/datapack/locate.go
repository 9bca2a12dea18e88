package datapack

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

// AllFunctionsPattern matches every function file below a datapack root.
const AllFunctionsPattern = "**/" + dataDir + "/*/" + functionsDir + "/**/*" + FunctionExt

// errStopWalk lets callers end a walk early without reporting an error.
var errStopWalk = errors.New("stop walk")

// Filter selects function files by regular expressions over their path.
// Patterns are prefix matches: they are anchored at the start of the path but
// not at the end.
type Filter struct {
	Includes []string `yaml:"includes,omitempty" json:"includes,omitempty"`
	Excludes []string `yaml:"excludes,omitempty" json:"excludes,omitempty"`
}

// Matcher is a compiled Filter.
type Matcher struct {
	includes []*regexp.Regexp
	excludes []*regexp.Regexp
}

// Compile validates and compiles the filter patterns.
func (f Filter) Compile() (*Matcher, error) {
	m := &Matcher{}
	for _, p := range f.Includes {
		re, err := compilePrefix(p)
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", p, err)
		}
		m.includes = append(m.includes, re)
	}
	for _, p := range f.Excludes {
		re, err := compilePrefix(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		m.excludes = append(m.excludes, re)
	}
	return m, nil
}

func compilePrefix(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + pattern + `)`)
}

// Match reports whether the path passes the filter: no includes or at least one
// include matches, and then no exclude matches. A nil Matcher accepts all paths.
func (m *Matcher) Match(p string) bool {
	if m == nil {
		return true
	}

	passesIncludes := len(m.includes) == 0
	for _, re := range m.includes {
		if re.MatchString(p) {
			passesIncludes = true
			break
		}
	}
	if !passesIncludes {
		return false
	}

	for _, re := range m.excludes {
		if re.MatchString(p) {
			return false
		}
	}
	return true
}

// Walk streams every function file below root that passes the matcher to fn.
// Order follows the directory traversal and must not be relied upon. Returning
// a non-nil error from fn stops the walk and that error is returned.
func Walk(root string, m *Matcher, fn func(FunctionPath) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDatapack, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidDatapack, root)
	}

	slashRoot := filepath.ToSlash(root)
	return doublestar.GlobWalk(os.DirFS(root), AllFunctionsPattern, func(rel string, _ fs.DirEntry) error {
		full := path.Join(slashRoot, rel)
		if !m.Match(full) {
			return nil
		}

		ns, fnPath, err := splitFunctionPath(rel)
		if err != nil {
			return err
		}
		return fn(FunctionPath{
			Namespace: ns,
			Path:      fnPath,
			File:      filepath.FromSlash(full),
		})
	}, doublestar.WithFilesOnly())
}

// Locate collects all function files below root that pass the filter.
func Locate(root string, filter Filter) ([]FunctionPath, error) {
	m, err := filter.Compile()
	if err != nil {
		return nil, err
	}

	var out []FunctionPath
	err = Walk(root, m, func(fp FunctionPath) error {
		out = append(out, fp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exists reports whether at least one function below root passes the filter.
func Exists(root string, filter Filter) (bool, error) {
	m, err := filter.Compile()
	if err != nil {
		return false, err
	}

	found := false
	err = Walk(root, m, func(FunctionPath) error {
		found = true
		return errStopWalk
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return false, err
	}
	return found, nil
}

// Set is a collection of functions keyed by CallID.
type Set map[CallID]FunctionPath

// NewSet indexes functions by CallID. When two files map to the same id the
// first one wins; they are the same logical function.
func NewSet(fns []FunctionPath) Set {
	s := make(Set, len(fns))
	for _, fp := range fns {
		if _, ok := s[fp.ID()]; !ok {
			s[fp.ID()] = fp
		}
	}
	return s
}

// Difference returns the members of s whose id is not in other.
func (s Set) Difference(other Set) Set {
	out := make(Set, len(s))
	for id, fp := range s {
		if _, ok := other[id]; !ok {
			out[id] = fp
		}
	}
	return out
}

// Intersect returns the members of s whose id is also in other.
func (s Set) Intersect(other Set) Set {
	out := make(Set)
	for id, fp := range s {
		if _, ok := other[id]; ok {
			out[id] = fp
		}
	}
	return out
}

// IDs returns the set's call ids in lexical order.
func (s Set) IDs() []CallID {
	ids := make([]CallID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}
