package snapshot

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type homeFixture struct {
	home   string
	nvim   string
	zellij string
	zshrc  string
}

func newHomeFixture(t *testing.T) homeFixture {
	t.Helper()
	home := filepath.Join(t.TempDir(), "home", "user")
	fixture := homeFixture{
		home:   home,
		nvim:   filepath.Join(home, ".config", "nvim"),
		zellij: filepath.Join(home, ".config", "zellij"),
		zshrc:  filepath.Join(home, ".zshrc"),
	}
	writeFile(t, filepath.Join(fixture.nvim, "init.lua"), "vim.o.number = true")
	writeFile(t, filepath.Join(fixture.nvim, "lua", "keymaps.lua"), "-- keymaps")
	writeFile(t, filepath.Join(fixture.zellij, "config.kdl"), "theme \"nord\"")
	writeFile(t, fixture.zshrc, "bindkey -v")
	return fixture
}

func (f homeFixture) whitelist() []string {
	return DefaultWhitelist(f.home)
}

// treeListing maps each path below root to its type and content.
func treeListing(t *testing.T, root string) map[string]string {
	t.Helper()
	listing := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, _ := filepath.Rel(root, path)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			listing[rel] = "link:" + target
		case d.IsDir():
			listing[rel] = "dir:" + info.Mode().Perm().String()
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			listing[rel] = "file:" + info.Mode().Perm().String() + ":" + info.ModTime().String() + ":" + string(data)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return listing
}

func TestRunAllReRootsWhitelist(t *testing.T) {
	requires := require.New(t)
	fixture := newHomeFixture(t)
	resultsDir := filepath.Join(t.TempDir(), "snap1")
	requires.NoError(PrepareResultsDir(resultsDir, false, zap.NewNop()))

	result, err := RunAll(context.Background(), Options{ResultsDirectory: resultsDir, Whitelist: fixture.whitelist()}, zap.NewNop())

	requires.NoError(err)
	requires.Equal(3, result.EntriesCopied)
	requires.Equal(4, result.Files)
	requires.Equal(2, result.ActionCounters[KindDirectory])
	requires.Equal(1, result.ActionCounters[KindFile])
	requires.Equal("bindkey -v", readFile(t, DestinationFor(resultsDir, fixture.zshrc)))
	requires.Equal(treeListing(t, fixture.nvim), treeListing(t, DestinationFor(resultsDir, fixture.nvim)))
	requires.Equal(treeListing(t, fixture.zellij), treeListing(t, DestinationFor(resultsDir, fixture.zellij)))
}

func TestForcedRerunIsIdempotent(t *testing.T) {
	requires := require.New(t)
	fixture := newHomeFixture(t)
	resultsDir := filepath.Join(t.TempDir(), "root")
	options := Options{ResultsDirectory: resultsDir, Whitelist: fixture.whitelist()}

	requires.NoError(PrepareResultsDir(resultsDir, true, zap.NewNop()))
	_, err := RunAll(context.Background(), options, zap.NewNop())
	requires.NoError(err)
	first := treeListing(t, resultsDir)

	requires.NoError(PrepareResultsDir(resultsDir, true, zap.NewNop()))
	_, err = RunAll(context.Background(), options, zap.NewNop())
	requires.NoError(err)

	requires.Equal(first, treeListing(t, resultsDir))
}

func TestWhitelistedSymlinkStaysLink(t *testing.T) {
	skipWithoutSymlinks(t)
	requires := require.New(t)
	fixture := newHomeFixture(t)
	linked := filepath.Join(fixture.home, ".zshenv")
	requires.NoError(os.Symlink(fixture.zshrc, linked))
	resultsDir := filepath.Join(t.TempDir(), "root")
	requires.NoError(PrepareResultsDir(resultsDir, false, nil))

	result, err := SyncFiles(context.Background(), Options{ResultsDirectory: resultsDir, Whitelist: []string{linked}}, nil)

	requires.NoError(err)
	requires.Equal(1, result.ActionCounters[KindSymlink])
	target, err := os.Readlink(DestinationFor(resultsDir, linked))
	requires.NoError(err)
	requires.Equal(fixture.zshrc, target)
}

func TestDirectoryEntryMergesWithPartialRun(t *testing.T) {
	requires := require.New(t)
	fixture := newHomeFixture(t)
	resultsDir := filepath.Join(t.TempDir(), "root")
	requires.NoError(PrepareResultsDir(resultsDir, false, nil))
	sibling := filepath.Join(DestinationFor(resultsDir, fixture.nvim), "leftover.lua")
	writeFile(t, sibling, "from an earlier run")

	_, err := SyncFiles(context.Background(), Options{ResultsDirectory: resultsDir, Whitelist: fixture.whitelist()}, nil)

	requires.NoError(err)
	requires.Equal("from an earlier run", readFile(t, sibling))
	requires.Equal("vim.o.number = true", readFile(t, filepath.Join(DestinationFor(resultsDir, fixture.nvim), "init.lua")))
}

func TestMissingSourceAbortsAfterEarlierEntries(t *testing.T) {
	requires := require.New(t)
	fixture := newHomeFixture(t)
	missing := filepath.Join(fixture.home, ".config", "missing")
	resultsDir := filepath.Join(t.TempDir(), "root")
	requires.NoError(PrepareResultsDir(resultsDir, false, nil))
	whitelist := []string{fixture.nvim, missing, fixture.zshrc}

	result, err := RunAll(context.Background(), Options{ResultsDirectory: resultsDir, Whitelist: whitelist}, zap.NewNop())

	var entryErr *EntryError
	requires.True(errors.As(err, &entryErr))
	requires.Equal(missing, entryErr.Source)
	requires.Equal(DestinationFor(resultsDir, missing), entryErr.Destination)
	requires.True(errors.Is(err, fs.ErrNotExist))
	requires.Equal(1, result.EntriesCopied)
	requires.Equal(1, result.EntriesFailed)

	requires.Equal(treeListing(t, fixture.nvim), treeListing(t, DestinationFor(resultsDir, fixture.nvim)))
	_, statErr := os.Lstat(DestinationFor(resultsDir, fixture.zshrc))
	requires.True(os.IsNotExist(statErr))
}

func TestContinueOnErrorCopiesRemainingEntries(t *testing.T) {
	requires := require.New(t)
	fixture := newHomeFixture(t)
	missing := filepath.Join(fixture.home, ".bashrc")
	resultsDir := filepath.Join(t.TempDir(), "root")
	requires.NoError(PrepareResultsDir(resultsDir, false, nil))
	options := Options{
		ResultsDirectory: resultsDir,
		Whitelist:        []string{missing, fixture.zshrc},
		ErrorPolicy:      ContinueOnError,
	}

	result, err := SyncFiles(context.Background(), options, nil)

	requires.ErrorIs(err, fs.ErrNotExist)
	requires.Equal(1, result.EntriesCopied)
	requires.Equal(1, result.EntriesFailed)
	requires.Equal("bindkey -v", readFile(t, DestinationFor(resultsDir, fixture.zshrc)))
}

func TestManifestWrittenWithDigests(t *testing.T) {
	requires := require.New(t)
	fixture := newHomeFixture(t)
	resultsDir := filepath.Join(t.TempDir(), "root")
	manifestPath := filepath.Join(t.TempDir(), "manifest.json")
	requires.NoError(PrepareResultsDir(resultsDir, false, nil))
	options := Options{
		ResultsDirectory: resultsDir,
		Whitelist:        fixture.whitelist(),
		VerifyContent:    true,
		ManifestPath:     manifestPath,
	}

	_, err := SyncFiles(context.Background(), options, zap.NewNop())
	requires.NoError(err)

	manifest, err := LoadManifest(manifestPath)
	requires.NoError(err)
	requires.Equal(resultsDir, manifest.ResultsDirectory)
	requires.Len(manifest.Entries, 3)
	for i := 1; i < len(manifest.Entries); i++ {
		requires.Less(manifest.Entries[i-1].Source, manifest.Entries[i].Source)
	}
	byKind := map[string]int{}
	for _, entry := range manifest.Entries {
		byKind[entry.Kind]++
		requires.Equal(DestinationFor(resultsDir, entry.Source), entry.Destination)
		requires.NotEmpty(entry.Digests)
	}
	requires.Equal(2, byKind[KindDirectory])
	requires.Equal(1, byKind[KindFile])

	first, err := os.ReadFile(manifestPath)
	requires.NoError(err)
	requires.NoError(PrepareResultsDir(resultsDir, true, nil))
	_, err = SyncFiles(context.Background(), options, nil)
	requires.NoError(err)
	second, err := os.ReadFile(manifestPath)
	requires.NoError(err)
	requires.Equal(string(first), string(second))
}
