package datapack

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

const (
	// FunctionExt is the file extension of function files.
	FunctionExt = ".mcfunction"
	tagExt      = ".json"

	dataDir      = "data"
	functionsDir = "functions"
)

// CallID is the canonical "namespace:relative/path" identifier of a function.
// It is the unit of identity for every call-graph comparison.
type CallID string

// Namespace returns the part of the id before the colon.
func (c CallID) Namespace() string {
	ns, _, _ := strings.Cut(string(c), ":")
	return ns
}

// FunctionPath identifies a function file inside a datapack.
type FunctionPath struct {
	// Namespace is the top-level grouping under data/.
	Namespace string
	// Path is the slash separated path within the namespace, without extension.
	Path string
	// File is the backing file location on disk.
	File string
}

// ID returns the call identifier of the function.
func (f FunctionPath) ID() CallID {
	return CallID(f.Namespace + ":" + f.Path)
}

func (f FunctionPath) String() string {
	return string(f.ID())
}

// NewFunctionPath derives a FunctionPath from the location of a function file.
func NewFunctionPath(file string) (FunctionPath, error) {
	ns, rel, err := splitFunctionPath(file)
	if err != nil {
		return FunctionPath{}, err
	}
	return FunctionPath{Namespace: ns, Path: rel, File: file}, nil
}

// CallIDFromPath converts the path of a function file into its call identifier:
// everything up to data/ is stripped, the first remaining segment is the
// namespace, the functions segment and the file's own segment are dropped and
// the base name without extension becomes the last path component.
func CallIDFromPath(file string) (CallID, error) {
	ns, rel, err := splitFunctionPath(file)
	if err != nil {
		return "", err
	}
	return CallID(ns + ":" + rel), nil
}

func splitFunctionPath(file string) (string, string, error) {
	parts := strings.Split(filepath.ToSlash(file), "/")

	for i := 0; i+3 < len(parts); i++ {
		if parts[i] != dataDir || parts[i+2] != functionsDir {
			continue
		}
		namespace := parts[i+1]
		if namespace == "" {
			break
		}
		dirs := parts[i+3 : len(parts)-1]
		base := parts[len(parts)-1]
		stem := strings.TrimSuffix(base, path.Ext(base))

		rel := append(append([]string{}, dirs...), stem)
		return namespace, strings.Join(rel, "/"), nil
	}
	return "", "", fmt.Errorf("%s is not located under data/<namespace>/functions/", file)
}

// FunctionCallToPath maps a call (or a "#namespace:path" function tag) back to
// the file that defines it inside the datapack rooted at root.
func FunctionCallToPath(root, call string) string {
	isTag := strings.HasPrefix(call, "#")
	call = strings.TrimPrefix(call, "#")
	namespace, rel, _ := strings.Cut(call, ":")

	if isTag {
		return filepath.Join(root, dataDir, namespace, "tags", functionsDir, filepath.FromSlash(rel)+tagExt)
	}
	return filepath.Join(root, dataDir, namespace, functionsDir, filepath.FromSlash(rel)+FunctionExt)
}
