package scan

import "fmt"

// FatalFetchError halts a run: a slot could not be fetched after the
// provider exhausted its retries. Nothing from later slots is emitted.
type FatalFetchError struct {
	Slot uint64
	Err  error
}

func (e *FatalFetchError) Error() string {
	return fmt.Sprintf("fetch slot %d: %v", e.Slot, e.Err)
}

func (e *FatalFetchError) Unwrap() error {
	return e.Err
}
