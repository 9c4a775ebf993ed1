// Package merkle snapshots a workspace into a content-addressed hash tree
// and diffs two snapshots to find changed and deleted files.
//
// # Snapshotting
//
//	b := merkle.NewBuilder(merkle.OSFileSystem{}, includes, excludes, logger)
//	root, err := b.BuildTree(ctx, "/path/to/workspace")
//
// The builder walks the workspace depth-first, skipping excluded paths,
// hashing file contents at the leaves and the sorted child hashes at
// directories. A change anywhere in the tree therefore changes every hash
// on the path up to the root; two workspaces with identical included
// content always produce identical root hashes.
//
// # Diffing
//
//	changed := merkle.Changed(oldRoot, newRoot) // added or modified
//	deleted := merkle.Deleted(oldRoot, newRoot) // present before, gone now
//
// Changed treats a nil old snapshot (first pass for a branch) as "every
// leaf changed". Deletion detection is a plain set difference over the
// flattened leaf path sets, so a file can never appear in both results.
package merkle
