package io

import (
	"io/fs"
	"os"
)

//go:generate mockgen -destination=mocks/mock_io.go -package=mocks github.com/pelosub/pelosub/pkg/io FileIO

// FileIO is an interface for the file operations the repairer performs.
type FileIO interface {
	Stat(target string) (os.FileInfo, error)
	Rename(source, target string) error
	ReadFile(name string) ([]byte, error)
	WriteFileAtomic(name string, data []byte, perm os.FileMode) error
	MkdirAll(name string, perm os.FileMode) error
	Remove(name string) error
	ReadDir(name string) ([]os.DirEntry, error)
	WalkDir(fsys fs.FS, root string, fn fs.WalkDirFunc) error
	FileExists(path string) bool
}
