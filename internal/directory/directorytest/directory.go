// Package directorytest provides an in-memory employee directory.
package directorytest

import (
	"context"
	"sync"

	"go-hris-leave/internal/directory"
	directoryerrors "go-hris-leave/internal/directory/errors"
)

type Directory struct {
	mu        sync.RWMutex
	employees map[string]directory.Employee
	failWith  error
}

func New(employees ...directory.Employee) *Directory {
	d := &Directory{employees: make(map[string]directory.Employee)}
	for _, e := range employees {
		d.employees[e.ID] = e
	}
	return d
}

func (d *Directory) Add(e directory.Employee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.employees[e.ID] = e
}

// FailWith makes every lookup return err until called again with nil.
func (d *Directory) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failWith = err
}

func (d *Directory) ResolveEmployee(_ context.Context, id string) (directory.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.failWith != nil {
		return directory.Employee{}, d.failWith
	}
	e, ok := d.employees[id]
	if !ok {
		return directory.Employee{}, directoryerrors.ErrEmployeeNotFound
	}
	return e, nil
}
