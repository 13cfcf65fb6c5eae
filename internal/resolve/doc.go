// Package resolve turns a rule tree into live element state.
//
// It owns the element arena and the variable store, and implements the four
// resolution components:
//
//   - Selector Matcher (matcher.go): which class rules apply to a new element,
//     found by walking the class rules declared along its ancestor chain.
//   - Cascade Resolver (cascade.go): composes property contributions in
//     precedence order (class rules by scope depth, element block, overrides).
//   - Variable Store (variables.go): scoped declarations, derived values and
//     push-based propagation to subscribed (element, property) pairs.
//   - Structure Validator (structure.go): at most one structure assignment
//     per element per epoch.
//
// Build produces the initial state at epoch 0. ApplyEffect stages one listener
// firing on a State; callers stage on a Clone and swap it in to commit, so no
// intermediate state is ever observable.
//
// A State has a single writer. Nothing in this package is safe for
// concurrent use.
package resolve
