// Package naming builds output filenames from metadata templates and
// resolves collisions with existing or already-claimed paths.
package naming
