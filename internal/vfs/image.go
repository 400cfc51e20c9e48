package vfs

import (
	"fmt"
	"os"
	"path"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
)

// Image serves files from a file system inside a disk image (ISO 9660,
// FAT32, squashfs, ...), as distributed on installation media
type Image struct {
	path string
	disk *disk.Disk
	fs   filesystem.FileSystem
}

// OpenImage opens a disk image read-only. partition selects the
// partition holding the data files; 0 means the whole disk, which is the
// usual case for ISO images.
func OpenImage(imgPath string, partition int) (*Image, error) {
	d, err := diskfs.Open(imgPath, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", imgPath, err)
	}

	fs, err := d.GetFilesystem(partition)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to read file system of %s (partition %d): %w", imgPath, partition, err)
	}

	return &Image{path: imgPath, disk: d, fs: fs}, nil
}

// Open opens name relative to the root of the image file system. Lookup
// failures report os.ErrNotExist, as file system drivers differ in the
// errors they return.
func (im *Image) Open(name string) (File, error) {
	p := path.Join("/", name)
	f, err := im.fs.OpenFile(p, os.O_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("open %s in %s: %w (%v)", p, im.path, os.ErrNotExist, err)
	}
	return f, nil
}

// Close releases the underlying image file
func (im *Image) Close() error {
	return im.disk.Close()
}
