package track

import "errors"

// ErrBatcherClosed is returned by Enqueue after Destroy or Shutdown.
var ErrBatcherClosed = errors.New("batcher is closed")
