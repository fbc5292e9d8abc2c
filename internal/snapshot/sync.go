package snapshot

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// SyncResult summarizes a snapshot run.
type SyncResult struct {
	EntriesCopied  int
	EntriesFailed  int
	Files          int
	Links          int
	Directories    int
	Bytes          int64
	ActionCounters map[string]int
}

// RunAll logs the start and end of a sync around SyncFiles.
// Errors from SyncFiles are returned unchanged.
func RunAll(ctx context.Context, options Options, logger *zap.Logger) (SyncResult, error) {
	if logger != nil {
		logger.Info("Starting sync.")
	}
	result, err := SyncFiles(ctx, options, logger)
	if err != nil {
		return result, err
	}
	if logger != nil {
		logger.Info("Finished sync.",
			zap.Int("entries", result.EntriesCopied),
			zap.Int("files", result.Files),
			zap.Int("links", result.Links),
			zap.Int64("bytes", result.Bytes),
		)
	}
	return result, nil
}

// SyncFiles copies every whitelist entry under options.ResultsDirectory in order.
func SyncFiles(ctx context.Context, options Options, logger *zap.Logger) (SyncResult, error) {
	result := SyncResult{ActionCounters: map[string]int{
		KindDirectory: 0,
		KindFile:      0,
		KindSymlink:   0,
	}}

	copier := options.Copier
	if copier == nil {
		copier = &FileCopier{
			ExcludeMatcher: options.ExcludeMatcher,
			VerifyContent:  options.VerifyContent,
			RecordDigests:  options.ManifestPath != "",
			Logger:         logger,
		}
	}

	var manifest *Manifest
	if options.ManifestPath != "" {
		manifest = newManifest(options.ResultsDirectory)
	}

	var failures []error
	for _, source := range options.Whitelist {
		if err := ctx.Err(); err != nil {
			return result, errors.Join(append(failures, err)...)
		}
		destination := DestinationFor(options.ResultsDirectory, source)

		stats, copyErr := copier.CopyEntry(ctx, source, destination)
		if copyErr != nil {
			entryErr := &EntryError{Source: source, Destination: destination, Err: copyErr}
			result.EntriesFailed++
			if logger != nil {
				logger.Debug("entry failed", zap.String("source", source), zap.Error(copyErr))
			}
			if options.ErrorPolicy != ContinueOnError {
				return result, entryErr
			}
			failures = append(failures, entryErr)
			continue
		}

		result.EntriesCopied++
		result.Files += stats.Files
		result.Links += stats.Links
		result.Directories += stats.Directories
		result.Bytes += stats.Bytes
		result.ActionCounters[stats.Kind]++
		if manifest != nil {
			manifest.add(source, destination, stats)
		}
		if logger != nil {
			logger.Debug("entry copied",
				zap.String("source", source),
				zap.String("destination", destination),
				zap.String("kind", stats.Kind),
			)
		}
	}

	if len(failures) > 0 {
		return result, errors.Join(failures...)
	}

	if manifest != nil {
		if err := manifest.save(options.ManifestPath); err != nil {
			if logger != nil {
				logger.Error("save manifest", zap.String("path", options.ManifestPath), zap.Error(err))
			}
			return result, err
		}
	}

	if logger != nil {
		logger.Info("Synced files.")
	}
	return result, nil
}
