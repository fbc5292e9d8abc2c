package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sabhiram/go-gitignore"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
)

// Entry kinds recorded in EntryStats and the manifest.
const (
	KindDirectory = "directory"
	KindFile      = "file"
	KindSymlink   = "symlink"
)

//go:generate mockgen -destination=mocks/mock_copier.go -package=mocks github.com/MarkoPoloResearchLab/snapshot_sync/internal/snapshot Copier

// Copier copies a single whitelist entry to its destination.
type Copier interface {
	CopyEntry(ctx context.Context, source string, destination string) (EntryStats, error)
}

// EntryStats describes what copying one entry produced.
type EntryStats struct {
	Kind        string
	Files       int
	Links       int
	Directories int
	Bytes       int64
	// Digests maps slash-separated paths relative to the entry to xxh3 digests.
	// Only populated when the copier records digests.
	Digests map[string]string
}

// FileCopier copies entries on the local filesystem.
// Symbolic links are recreated rather than followed.
type FileCopier struct {
	ExcludeMatcher *ignore.GitIgnore
	VerifyContent  bool
	RecordDigests  bool
	Logger         *zap.Logger
}

// CopyEntry copies source to destination according to the kind of source.
func (c *FileCopier) CopyEntry(ctx context.Context, source string, destination string) (EntryStats, error) {
	stats := EntryStats{}
	if c.RecordDigests {
		stats.Digests = map[string]string{}
	}

	info, err := os.Lstat(source)
	if err != nil {
		return stats, err
	}

	switch mode := info.Mode(); {
	case mode&fs.ModeSymlink != 0:
		// A link to a directory is copied as the directory it points to.
		if target, statErr := os.Stat(source); statErr == nil && target.IsDir() {
			stats.Kind = KindDirectory
			if err := c.copyTree(ctx, source, source, destination, target, &stats); err != nil {
				return stats, err
			}
			break
		}
		stats.Kind = KindSymlink
		if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
			return stats, fmt.Errorf("create parent directory: %w", err)
		}
		if err := copySymlink(source, destination); err != nil {
			return stats, err
		}
		stats.Links++
	case mode.IsDir():
		stats.Kind = KindDirectory
		if err := c.copyTree(ctx, source, source, destination, info, &stats); err != nil {
			return stats, err
		}
	case mode.IsRegular():
		stats.Kind = KindFile
		if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
			return stats, fmt.Errorf("create parent directory: %w", err)
		}
		if err := c.copyRegular(ctx, source, destination, info, ".", &stats); err != nil {
			return stats, err
		}
	default:
		return stats, fmt.Errorf("%w: %s (%s)", ErrUnsupportedFileType, source, mode.Type())
	}
	return stats, nil
}

// copyTree merges the directory src into dst. Directory permissions and
// times are applied after the contents so read-only sources still copy.
func (c *FileCopier) copyTree(ctx context.Context, root string, src string, dst string, info fs.FileInfo, stats *EntryStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	stats.Directories++

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		rel, err := filepath.Rel(root, srcPath)
		if err != nil {
			return err
		}

		if c.excluded(rel, entry.IsDir()) {
			if c.Logger != nil {
				c.Logger.Debug("excluded", zap.String("path", srcPath))
			}
			continue
		}

		entryInfo, err := entry.Info()
		if err != nil {
			return err
		}
		switch mode := entryInfo.Mode(); {
		case mode&fs.ModeSymlink != 0:
			if err := copySymlink(srcPath, dstPath); err != nil {
				return err
			}
			stats.Links++
		case mode.IsDir():
			if err := c.copyTree(ctx, root, srcPath, dstPath, entryInfo, stats); err != nil {
				return err
			}
		case mode.IsRegular():
			if err := c.copyRegular(ctx, srcPath, dstPath, entryInfo, filepath.ToSlash(rel), stats); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s (%s)", ErrUnsupportedFileType, srcPath, mode.Type())
		}
	}

	if err := os.Chmod(dst, preservedMode(info)); err != nil {
		return fmt.Errorf("set directory mode: %w", err)
	}
	if err := os.Chtimes(dst, time.Now(), info.ModTime()); err != nil {
		return fmt.Errorf("set directory modification time: %w", err)
	}
	return nil
}

func (c *FileCopier) excluded(rel string, isDir bool) bool {
	if c.ExcludeMatcher == nil {
		return false
	}
	p := filepath.ToSlash(rel)
	if isDir {
		p += "/"
	}
	return c.ExcludeMatcher.MatchesPath(p)
}

func (c *FileCopier) copyRegular(ctx context.Context, src string, dst string, info fs.FileInfo, rel string, stats *EntryStats) error {
	hashing := c.VerifyContent || c.RecordDigests
	digest, written, err := copyFileContents(ctx, src, dst, preservedMode(info), hashing)
	if err != nil {
		return err
	}
	if err := os.Chmod(dst, preservedMode(info)); err != nil {
		return fmt.Errorf("set file mode: %w", err)
	}
	if err := os.Chtimes(dst, time.Now(), info.ModTime()); err != nil {
		return fmt.Errorf("set file modification time: %w", err)
	}

	if c.VerifyContent {
		copied, err := digestFile(dst)
		if err != nil {
			return fmt.Errorf("verify %s: %w", dst, err)
		}
		if copied != digest {
			return fmt.Errorf("%w: %s", ErrVerifyMismatch, dst)
		}
	}
	if stats.Digests != nil {
		stats.Digests[rel] = digest
	}
	stats.Files++
	stats.Bytes += written
	return nil
}

// copyFileContents streams src into dst, truncating dst if it exists.
// When hashing is set the xxh3 digest of the source bytes is returned.
func copyFileContents(ctx context.Context, src string, dst string, perm fs.FileMode, hashing bool) (string, int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", 0, fmt.Errorf("cannot open file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return "", 0, fmt.Errorf("cannot create file: %w", err)
	}

	var writer io.Writer = out
	hasher := xxh3.New()
	if hashing {
		writer = io.MultiWriter(out, hasher)
	}

	written, copyErr := io.Copy(writer, newReaderWithContext(ctx, in))
	closeErr := out.Close()
	if copyErr != nil {
		return "", written, fmt.Errorf("cannot read/write file content: %w", copyErr)
	}
	if closeErr != nil {
		return "", written, fmt.Errorf("cannot close file: %w", closeErr)
	}
	if !hashing {
		return "", written, nil
	}
	return formatDigest(hasher.Sum64()), written, nil
}

// copySymlink recreates the link at src as dst, replacing an existing non-directory dst.
func copySymlink(src string, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("read link: %w", err)
	}
	if existing, err := os.Lstat(dst); err == nil {
		if existing.IsDir() {
			return fmt.Errorf("cannot replace directory %s with a symbolic link", dst)
		}
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("remove existing entry: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Symlink(target, dst); err != nil {
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}

func preservedMode(info fs.FileInfo) fs.FileMode {
	return info.Mode() & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	hasher := xxh3.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return formatDigest(hasher.Sum64()), nil
}

func formatDigest(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

// readerWithContext makes a read loop cancellable.
type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func newReaderWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &readerWithContext{ctx: ctx, r: r}
}

func (r *readerWithContext) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
		return r.r.Read(p)
	}
}
