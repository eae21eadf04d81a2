// Package files provides file management operations confined to a root directory.
package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrPathEscapesRoot is returned for paths that resolve outside the root directory.
var ErrPathEscapesRoot = errors.New("path escapes the file tool root")

// Toolkit performs file operations relative to Root. Every path argument is
// interpreted relative to Root, and results that would leave it are rejected.
type Toolkit struct {
	root string
}

// NewToolkit returns a toolkit rooted at root. The directory is created on first write.
func NewToolkit(root string) (*Toolkit, error) {
	if root == "" {
		return nil, errors.New("file tool root cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("absolute root: %w", err)
	}
	return &Toolkit{root: abs}, nil
}

// Root returns the absolute root directory.
func (t *Toolkit) Root() string {
	return t.root
}

// resolve maps a user path to an absolute path inside the root.
func (t *Toolkit) resolve(p string) (string, error) {
	full := filepath.Join(t.root, p)
	if !within(t.root, full) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, p)
	}
	realRoot, err := filepath.EvalSymlinks(t.root)
	if err != nil {
		// No root yet means nothing under it can be a symlink.
		return full, nil
	}
	// Symlinks inside the root may still point outside it. A path that does not
	// exist yet is checked through its deepest existing ancestor.
	real, err := evalExisting(full)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	if !within(realRoot, real) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, p)
	}
	return full, nil
}

// evalExisting resolves symlinks in the longest existing prefix of p and
// appends the missing remainder. Dangling symlinks are followed to their target.
func evalExisting(p string) (string, error) {
	rest := ""
	for hops := 0; hops < maxSymlinkHops; {
		real, err := filepath.EvalSymlinks(p)
		if err == nil {
			return filepath.Join(real, rest), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if target, linkErr := os.Readlink(p); linkErr == nil {
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(p), target)
			}
			p = target
			hops++
			continue
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", err
		}
		rest = filepath.Join(filepath.Base(p), rest)
		p = parent
	}
	return "", errors.New("too many levels of symbolic links")
}

const maxSymlinkHops = 40

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// ReadFile returns the contents of path.
func (t *Toolkit) ReadFile(path string) (string, error) {
	full, err := t.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile writes text to path, creating parent directories. With appendMode
// the text is appended instead of replacing the file.
func (t *Toolkit) WriteFile(path, text string, appendMode bool) (string, error) {
	full, err := t.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(full, flags, 0644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("File written successfully to %s.", path), nil
}

// ListDirectory returns the names of the entries in dir, one per line.
func (t *Toolkit) ListDirectory(dir string) (string, error) {
	full, err := t.resolve(dir)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", displayDir(dir), err)
	}
	if len(entries) == 0 {
		return fmt.Sprintf("No files found in directory %s", displayDir(dir)), nil
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return strings.Join(names, "\n"), nil
}

// CopyFile copies src to dst, creating dst's parent directories.
func (t *Toolkit) CopyFile(src, dst string) (string, error) {
	srcFull, err := t.resolve(src)
	if err != nil {
		return "", err
	}
	dstFull, err := t.resolve(dst)
	if err != nil {
		return "", err
	}
	in, err := os.Open(srcFull)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dstFull), 0755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	out, err := os.Create(dstFull)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("File copied successfully from %s to %s.", src, dst), nil
}

// MoveFile moves or renames src to dst.
func (t *Toolkit) MoveFile(src, dst string) (string, error) {
	srcFull, err := t.resolve(src)
	if err != nil {
		return "", err
	}
	dstFull, err := t.resolve(dst)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(srcFull); err != nil {
		return "", fmt.Errorf("move %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dstFull), 0755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	if err := os.Rename(srcFull, dstFull); err != nil {
		return "", fmt.Errorf("move %s: %w", src, err)
	}
	return fmt.Sprintf("File moved successfully from %s to %s.", src, dst), nil
}

// DeleteFile removes the file at path. Directories are not removed.
func (t *Toolkit) DeleteFile(path string) (string, error) {
	full, err := t.resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(full)
	if err != nil {
		return "", fmt.Errorf("delete %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("delete %s: is a directory", path)
	}
	if err := os.Remove(full); err != nil {
		return "", fmt.Errorf("delete %s: %w", path, err)
	}
	return fmt.Sprintf("File deleted successfully: %s.", path), nil
}

// SearchFiles walks dir recursively and returns the root-relative paths of files
// whose base name matches the glob pattern, one per line.
func (t *Toolkit) SearchFiles(dir, pattern string) (string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return "", fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	full, err := t.resolve(dir)
	if err != nil {
		return "", err
	}
	var matches []string
	err = filepath.WalkDir(full, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			rel, err := filepath.Rel(t.root, p)
			if err != nil {
				return err
			}
			matches = append(matches, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search %s: %w", displayDir(dir), err)
	}
	if len(matches) == 0 {
		return fmt.Sprintf("No files found for pattern %s in directory %s", pattern, displayDir(dir)), nil
	}
	sort.Strings(matches)
	return strings.Join(matches, "\n"), nil
}

func displayDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
