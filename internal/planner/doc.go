// Package planner is the parameter normalizer: it turns a declarative
// conversion request plus the explicit configuration into a Plan that the
// ffmpeg package renders into arguments.
//
// Every function here is pure. Malformed numeric input (sample rates,
// bitrates, quality values) never errors; it degrades to the next candidate
// and finally to a built-in default. The only hard failure is an unknown
// target format.
//
// Files:
//   - types.go: Format table, Input, Plan and its parts
//   - audio.go: sample rate, channels, bitrate and codec resolution
//   - video.go: hardware-accel choice and encoder arguments
//   - tempo.go: named frame-rate conversions and atempo decomposition
//   - filter.go: -af/-vf chains
//   - subtitle.go: stream maps and subtitle codec
//   - disposition.go: default/attached_pic dispositions
//   - estimation.go: output size estimate for logging
package planner
