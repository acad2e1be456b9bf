package blockdevice

import (
	"io"
)

// BlockDevice is an interface for interacting with a block device like
// storage medium. Block devices support random access reads and writes.
// They differ from plain files, in that their size is fixed.
//
// Storage media tend to store data in sectors. These sectors cannot be
// read from and written to partially. Though the ReadAt() and WriteAt()
// methods provided by this interface do not require I/O to be sector
// aligned, not doing so may impact performance, particularly when
// writing.
//
// The emulated zoned device in pkg/zbc stores zone contents in a
// BlockDevice. As zone writes are always performed in whole sectors,
// no read-modify-write cycles are triggered.
type BlockDevice interface {
	io.ReaderAt
	io.WriterAt
	io.Closer

	Sync() error
}
