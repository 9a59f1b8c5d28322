// Package pathsafe turns attacker-controlled manifest keys into filesystem-safe
// segment lists and resolves them under a destination root.
//
// Sanitization works one segment at a time and never normalizes the path: a
// ".." segment is not collapsed against its parent, it is rewritten into a
// plain directory name. Resolution then checks the destination tree for
// file/directory conflicts, and a per-run Claims table catches two keys that
// sanitize onto the same destination before either touches the disk.
package pathsafe
