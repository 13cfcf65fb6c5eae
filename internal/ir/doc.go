// Package ir provides the canonical rule model and resolved document types for CUI.
//
// This package contains type definitions and pure helpers only. All other internal
// packages import ir; ir imports nothing internal. This keeps the rule model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Rule kinds and value expressions are closed (sealed) variants
//   - RuleNodes are immutable once indexed; the core borrows them, never copies
//   - Element identities are arena indices, never pointers
//   - All JSON tags use snake_case
//   - Logical epochs only, never wall-clock timestamps
package ir
