// Package vm implements the Tessera runtime.
//
// This package contains:
//   - the dynamic Value model and built-in methods
//   - lexical scopes and closures
//   - classes, bound methods and operator overloads
//   - modules with import/export linking
//   - the tree-walking Interpreter
package vm
