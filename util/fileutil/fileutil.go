package fileutil

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/cul-it/cular/constants"
)

// FileExists returns true if the file at path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	if err != nil && os.IsNotExist(err) {
		return false
	}
	return true
}

// JsonFileToObject reads the file at absPath and unmarshals it into
// obj.
func JsonFileToObject(absPath string, obj interface{}) error {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, obj)
}

// ExpandTilde expands a leading ~/ to the current user's home
// directory.
func ExpandTilde(filePath string) (string, error) {
	if !strings.HasPrefix(filePath, "~/") {
		return filePath, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return filepath.Join(usr.HomeDir, filePath[2:]), nil
}

// RecursiveFileList returns all regular files under dir, skipping the
// OS noise files that fixity generation must never count. Paths are
// absolute. Directories are not returned.
func RecursiveFileList(dir string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.Walk(dir, func(filePath string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() {
			return nil
		}
		if constants.IsExcludedFile(f.Name()) {
			return nil
		}
		files = append(files, filePath)
		return nil
	})
	return files, err
}

// RelativeToRoot converts an absolute path under root to the
// forward-slash relative form manifests use. Returns an error if the
// path is not under root.
func RelativeToRoot(root, absPath string) (string, error) {
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path '%s' is not under root '%s'", absPath, root)
	}
	return constants.NormalizeFilepath(rel), nil
}

// WriteFileAtomic writes data to path using a copy-then-rename
// discipline: the bytes land in a temp file in the same directory,
// which is then renamed over the target. A crash mid-write leaves the
// old file intact rather than a truncated new one. Shared registry
// files are always updated this way.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// CopyFile copies src to dst, creating parent directories as needed,
// and returns the number of bytes copied.
func CopyFile(dst, src string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, err
	}
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	bytesCopied, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return bytesCopied, err
	}
	return bytesCopied, out.Close()
}
