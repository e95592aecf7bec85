package host

import (
	"fmt"
	"os/exec"
	"sync"
)

// Fake is an in-memory System for tests.
type Fake struct {
	mu    sync.Mutex
	Root  bool
	paths map[string]string
	users map[string]bool
}

func NewFake() *Fake {
	return &Fake{Root: true, paths: map[string]string{}, users: map[string]bool{}}
}

// AddBinary makes LookPath resolve file to /usr/bin/<file>.
func (f *Fake) AddBinary(files ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, file := range files {
		f.paths[file] = "/usr/bin/" + file
	}
	return f
}

func (f *Fake) AddUser(name string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[name] = true
	return f
}

func (f *Fake) LookPath(file string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.paths[file]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
}

func (f *Fake) UserExists(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == "" {
		return false, fmt.Errorf("lookup user: empty name")
	}
	return f.users[name], nil
}

func (f *Fake) IsRoot() bool {
	return f.Root
}
