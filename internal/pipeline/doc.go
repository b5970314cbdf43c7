// Package pipeline is the conversion orchestrator. Converter turns one
// request into a published output file and then attaches lyrics and the
// legacy trailer; Batch runs many requests over a bounded worker pool.
//
// Per conversion:
//
//	validate -> cancel check -> plan -> name + de-dup -> ffmpeg into temp
//	sibling -> publish -> cancel re-check -> lyrics / legacy tag -> stat
//
// Only primary conversion failures are returned. Post-processing failures
// are logged and counted.
package pipeline
