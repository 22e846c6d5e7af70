// Package vm implements the Rubric runtime core.
//
// This package contains:
//   - Tagged value representation for immediates and heap objects
//   - The class and module registry with per-class constants and class variables
//   - Mixin linearization into a cached ancestor order
//   - Method resolution with visibility, super and method_missing
//   - The load manager behind require and load
//   - The Comparable protocol over <=>
//   - Primitive class implementations
//
// Source text is evaluated through an EvalFunc installed by the compiler
// package, so vm does not depend on the parser.
package vm
