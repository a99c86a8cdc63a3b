// Package binary decodes the BASMB binary module format into a BASM text
// module string, then hands that string to package text to build the
// final *vm.Module. Keeping decode → text → load as two distinct steps
// keeps the execution engine itself format-agnostic (spec.md §4.2).
package binary
