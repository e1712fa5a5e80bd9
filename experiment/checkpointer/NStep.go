package checkpointer

import "fmt"

// nStep checkpoints an object every interval epochs
type nStep struct {
	interval int
	object   Serializable

	// filename returns the file the object is saved to at an epoch
	filename func(epoch int) string
}

// NewNStep returns a checkpointer that saves object every n epochs to
// the file named by filename for that epoch, e.g.
//
//	NewNStep(10, policy, EpochFilename("log/checkpoint", ".ckpt"))
func NewNStep(n int, object Serializable,
	filename func(epoch int) string) (Checkpointer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("newNStep: interval must be positive, "+
			"have %d", n)
	}
	if filename == nil {
		return nil, fmt.Errorf("newNStep: no filename function")
	}
	return &nStep{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint saves the tracked object if epoch is a multiple of the
// interval
func (n *nStep) Checkpoint(epoch int) error {
	if epoch%n.interval != 0 {
		return nil
	}
	return save(n.object, n.filename(epoch))
}

// EpochFilename returns a filename function which appends the epoch
// and then the extension to prefix
func EpochFilename(prefix, extension string) func(epoch int) string {
	return func(epoch int) string {
		return fmt.Sprintf("%s%d%s", prefix, epoch, extension)
	}
}
