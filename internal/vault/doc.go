// Package vault defines the core types shared by the discovery, manifest,
// worker, and dispatcher packages: the remote site identity, per-key tasks,
// their terminal outcomes, and the error taxonomy used to classify failures.
package vault
