// Package env implements rz's process-wide variable store: a string→string
// mapping where list-valued entries are encoded as 0x01-separated bytes
// (spec.md §3 "Environment"). It is the one of the two singletons spec.md
// §9 calls out (the other is the fd table, internal/fdtable) — encapsulated
// here as a handle passed explicitly rather than a package-level global.
package env

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Sep is the list-value element separator.
const Sep = "\x01"

// FuncPrefix is the key prefix under which function bodies are stored.
const FuncPrefix = "fn#"

// Env is a mutable, list-valued variable store. The zero value is not
// usable; construct with New or NewDefault.
type Env struct {
	mu   sync.RWMutex
	vars map[string]string
}

// New returns an empty Env.
func New() *Env {
	return &Env{vars: make(map[string]string)}
}

// NewDefault returns an Env seeded with the implementation conventions
// spec.md §3 names: ifs, nl, tab, prompt, status, a lower-cased home mirror
// of $HOME, a path mirror of $PATH with ':' rewritten to the list
// separator, and PWD.
func NewDefault() *Env {
	e := New()
	e.SetList("ifs", []string{" ", "\t", "\n"})
	e.Set("nl", "\n")
	e.Set("tab", "\t")
	e.SetList("prompt", []string{"> ", "", "", ""})
	e.Set("status", "0")
	if home := os.Getenv("HOME"); home != "" {
		e.Set("home", home)
	}
	if path := os.Getenv("PATH"); path != "" {
		e.SetList("path", strings.Split(path, ":"))
	}
	if pwd, err := os.Getwd(); err == nil {
		e.Set("PWD", pwd)
	} else if pwd := os.Getenv("PWD"); pwd != "" {
		e.Set("PWD", pwd)
	}
	return e
}

// Get returns the raw (possibly list-encoded) stored value.
func (e *Env) Get(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.vars[key]
	return v, ok
}

// Set stores a single-element value under key.
func (e *Env) Set(key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if value == "" {
		delete(e.vars, key)
		return
	}
	e.vars[key] = value
}

// SetList stores a list value, joining elements with Sep. An empty list is
// absence of the key, per spec.md §3's invariant.
func (e *Env) SetList(key string, list []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(list) == 0 {
		delete(e.vars, key)
		return
	}
	e.vars[key] = strings.Join(list, Sep)
}

// List returns the stored value split on Sep, or nil if absent.
func (e *Env) List(key string) ([]string, bool) {
	e.mu.RLock()
	v, ok := e.vars[key]
	e.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return strings.Split(v, Sep), true
}

// Unset removes key entirely.
func (e *Env) Unset(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.vars, key)
}

// Keys returns all stored variable names, including fn# entries.
func (e *Env) Keys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.vars))
	for k := range e.vars {
		out = append(out, k)
	}
	return out
}

// FuncBody returns the raw source of a function body stored under
// "fn#<name>".
func (e *Env) FuncBody(name string) (string, bool) {
	return e.Get(FuncPrefix + name)
}

// SetFuncBody stores a function's raw body source under "fn#<name>".
func (e *Env) SetFuncBody(name, body string) {
	e.Set(FuncPrefix+name, body)
}

// Status returns $status as an int, defaulting to 0 if absent or malformed.
func (e *Env) Status() int {
	v, ok := e.Get("status")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// SetStatus stores $status as a decimal string.
func (e *Env) SetStatus(code int) {
	e.Set("status", strconv.Itoa(code))
}

// Home returns $home, falling back to os.UserHomeDir.
func (e *Env) Home() string {
	if h, ok := e.Get("home"); ok && h != "" {
		return h
	}
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return "/"
}

// Snapshot returns a process-environment-shaped KEY=VALUE slice suitable
// for os/exec.Cmd.Env: list values are rejoined with ':' for the path key
// and with a space otherwise, matching the $"name join
// convention used elsewhere in the resolver.
func (e *Env) Snapshot() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.vars))
	for k, v := range e.vars {
		if strings.HasPrefix(k, FuncPrefix) {
			continue
		}
		joiner := " "
		if k == "path" {
			joiner = ":"
		}
		out = append(out, k+"="+strings.ReplaceAll(v, Sep, joiner))
	}
	return out
}

// ConfigSearchPaths implements spec.md §6 "Configuration loading": the
// ordered list of script paths to attempt at startup, skipping missing
// files.
func ConfigSearchPaths() []string {
	var paths []string
	paths = append(paths, "/etc/rz/config.rz")
	if dirs := os.Getenv("XDG_DATA_DIRS"); dirs != "" {
		for _, d := range strings.Split(dirs, ":") {
			if d == "" {
				continue
			}
			paths = append(paths, filepath.Join(d, "rz", "config.rz"))
		}
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "rz", "config.rz"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "rz", "config.rz"))
	}
	return paths
}
