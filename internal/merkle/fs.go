package merkle

import (
	"io/fs"
	"os"
)

// FileSystem is the capability the builder needs from the host: directory
// enumeration, file reads, and stat. Production code uses OSFileSystem;
// tests substitute fakes to inject failures without touching the disk.
type FileSystem interface {
	ReadDir(path string) ([]fs.DirEntry, error)
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
}

// OSFileSystem implements FileSystem over the local operating system.
type OSFileSystem struct{}

func (OSFileSystem) ReadDir(path string) ([]fs.DirEntry, error) { return os.ReadDir(path) }
func (OSFileSystem) ReadFile(path string) ([]byte, error)       { return os.ReadFile(path) }
func (OSFileSystem) Stat(path string) (fs.FileInfo, error)      { return os.Stat(path) }
