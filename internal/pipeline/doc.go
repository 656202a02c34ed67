// Package pipeline orchestrates one VAP generation run as a state machine:
//
//	Normalized -> Encoded -> Swapped -> Patched -> Validated -> Done
//
// with Failed(reason) absorbing from any step. Every intermediate artifact
// lives in a staging directory owned exclusively by the run; the
// user-visible output path receives either one fully validated file or
// nothing. Independent runs are safe to execute concurrently since each
// owns its own staging directory.
package pipeline
