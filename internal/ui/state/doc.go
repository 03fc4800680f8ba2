// Package state holds the editor UI state tree consumed by the renderer.
//
// A State value is never mutated after it is published. The Store applies
// each action to a copy and swaps the pointer, so readers may hold on to a
// State and compare its parts by identity. Selectors in the sibling
// package rely on that to memoize derived values.
package state
