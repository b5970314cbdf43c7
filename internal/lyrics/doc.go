// Package lyrics finds lyrics for a media file and attaches them, either
// as a sidecar file or embedded in the file's tags.
//
// Embedding never modifies the original in place: the file is remuxed into
// a temp sibling which is swapped over the original only after it has been
// verified. A failed embed leaves the original byte-identical.
package lyrics
