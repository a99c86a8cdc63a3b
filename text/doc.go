// Package text implements the line-oriented loader for BASM's textual
// module format: module/memory declarations, data builders, functions and
// exports. Loading produces a *vm.Module ready to bind to a vm.Instance.
package text
