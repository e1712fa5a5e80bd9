// Package checkpointer implements checkpointers, which save
// serializable objects such as policies while training
package checkpointer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Serializable is an object that can be saved to a file
type Serializable interface {
	Save(path string) error
}

// Checkpointer checkpoints/saves serializable objects based on the
// current training epoch
type Checkpointer interface {
	Checkpoint(epoch int) error
}

// NewBest returns a function which saves its argument to path. It is
// meant to be called whenever a new best policy is found, so that path
// always holds the best policy. The argument must be Serializable.
func NewBest(path string) func(policy interface{}) error {
	return func(policy interface{}) error {
		s, ok := policy.(Serializable)
		if !ok {
			return fmt.Errorf("saveBest: %T cannot be saved", policy)
		}
		return save(s, path)
	}
}

// save saves s to path, creating the parent directories of path
func save(s Serializable, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "could not create checkpoint directory")
	}
	if err := s.Save(path); err != nil {
		return errors.Wrapf(err, "could not save checkpoint %v", path)
	}
	return nil
}
