// Package recdb persists synchronized recording metadata in SQLite.
//
// The Store manages database connections, schema initialization, and the
// three linked entities: Channel, RecordedProgram, and RecordedVideo.
// A video row is owned 1:1 by its program row; deleting the program cascades
// to the video via a foreign key, while channels are parents and are never
// deleted by the engine. Exactly one non-deleted video row exists per live
// file path (file_path is UNIQUE).
//
// SaveRecording is the single write path for analysis results: within one
// transaction it creates the channel if missing, then inserts or updates the
// program and video rows. Schema changes bump schemaVersion in schema.go;
// a mismatched database must be recreated.
package recdb
