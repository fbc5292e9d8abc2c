package snapshot

import (
	"errors"
	"io/fs"
	"os"

	"go.uber.org/zap"
)

// PrepareResultsDir creates resultsDir. Parents must already exist.
//
// An existing directory is an error unless force is set, in which case the
// whole tree is deleted and recreated empty. The deletion cannot be undone.
func PrepareResultsDir(resultsDir string, force bool, logger *zap.Logger) error {
	_, statErr := os.Stat(resultsDir)
	switch {
	case statErr == nil:
		if !force {
			return &PrepareError{Path: resultsDir, Err: ErrResultsDirExists}
		}
		if logger != nil {
			logger.Warn("--force option given, removing results directory", zap.String("path", resultsDir))
		}
		if err := os.RemoveAll(resultsDir); err != nil {
			return &PrepareError{Path: resultsDir, Err: err}
		}
	case !errors.Is(statErr, fs.ErrNotExist):
		return &PrepareError{Path: resultsDir, Err: statErr}
	}

	if err := os.Mkdir(resultsDir, 0o777); err != nil {
		return &PrepareError{Path: resultsDir, Err: err}
	}
	if logger != nil {
		logger.Debug("results directory ready", zap.String("path", resultsDir))
	}
	return nil
}
