// Package probe inspects media with a single ffprobe JSON call. The CLI
// uses it to decide whether an input carries video, how many audio tracks
// it has, and to recover container tags that the tag reader cannot parse.
package probe
