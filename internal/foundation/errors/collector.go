package errors

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Collector gathers content errors across a stage when collecting is enabled.
// Every other error, and every error when collecting is disabled, is handed
// straight back so the caller aborts. Safe for concurrent use.
type Collector struct {
	collect bool

	mu   sync.Mutex
	errs []error
}

// NewCollector returns a Collector. With collect=false it never retains errors.
func NewCollector(collect bool) *Collector {
	return &Collector{collect: collect}
}

// Record keeps err and returns nil when err is a collectable content error,
// otherwise it returns err unchanged.
func (c *Collector) Record(err error) error {
	if err == nil {
		return nil
	}
	if !c.collect {
		return err
	}
	classified, ok := AsClassified(err)
	if !ok || !classified.Skippable() {
		return err
	}
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
	return nil
}

// Len returns the number of retained errors.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// Err returns all retained errors as one content error, or nil.
// The joined errors are ordered by message so reports are stable across runs.
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errs) == 0 {
		return nil
	}
	errs := append([]error(nil), c.errs...)
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return WrapError(errors.Join(errs...), CategoryContent, fmt.Sprintf("%d invalid source files", len(errs))).
		Fatal().
		Build()
}
