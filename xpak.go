// Package xpak packs a directory tree into a single XPAK archive and reads it back.
//
// An archive is a self-describing JSON metadata header followed by length-prefixed file records, in a layout described
// by package format. Pack creates archives; Unpack extracts them, optionally only the selected paths; List returns the
// file table either from the metadata's embedded index or by walking every record; UpdateMetadata rewrites the header
// in place without touching the records; Inspect reports on every region for diagnostics.
//
// Every operation is sequential and checks its context.Context between records. Errors are *format.Error whose Kind
// tells what went wrong and where.
package xpak
