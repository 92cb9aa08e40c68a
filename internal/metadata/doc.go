// Package metadata is the extraction boundary between the reconciliation
// engine and recording file contents.
//
// It provides three operations: Fingerprint, a cheap content hash over a
// bounded prefix and suffix of a file used to detect real content changes
// without full extraction; Analyzer.Analyze, the expensive full extraction
// that shells out to ffprobe (a separate process, so CPU-bound parsing can
// never block or destabilize the engine loops); and Indexer.BuildIndex, the
// keyframe pass that produces seek offsets for completed recordings.
//
// Analyze maps ffprobe JSON (format, streams, and MPEG-TS program tables)
// into ProgramInfo, the persistence-agnostic shape the store consumes.
package metadata
