package types

// FileRef is a reference to a single content file belonging to exactly one
// partition: either a remote URI (s3://bucket/key) or a local path, never
// both populated at once.
type FileRef struct {
	// RemoteURI is set for files discovered remotely (C3). Empty for
	// local-only references.
	RemoteURI string
	// LocalPath is set for files resolved against the local cache (C4).
	// Empty for remote-only references.
	LocalPath string

	Partition Partition
	Format    ContentFormat

	// SizeBytes is the known byte size, or -1 when unknown.
	SizeBytes int64

	// ObjectKey is the key suffix (relative to the configured prefix) used
	// both as the S3 object key and the local cache-relative path, so that
	// C4's on-disk layout mirrors the remote layout exactly.
	ObjectKey string
}

// IsRemote reports whether this reference names a remote object.
func (f FileRef) IsRemote() bool {
	return f.RemoteURI != ""
}

// IsLocal reports whether this reference names a local file.
func (f FileRef) IsLocal() bool {
	return f.LocalPath != ""
}

// SizeKnown reports whether SizeBytes carries a real value.
func (f FileRef) SizeKnown() bool {
	return f.SizeBytes >= 0
}
