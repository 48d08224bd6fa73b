// Package types defines the value types shared by the stat catalog, the
// modifier ledger, and the stack recomputer: stat descriptors and their
// discovery tag, modifier records with their kinds and stacking policies,
// configuration, and the standard error values.
//
// Nothing in this package holds live reflection handles. A StatDescriptor
// carries only stable identity strings, so it can be persisted and restored
// across code reloads; bindings are resolved and cached by package catalog.
package types
