// Package storage declares the object-store collaborator contract:
// Put/Get/Exists over opaque logical paths, the external interface the
// core pipeline is written against so a replacement store can be
// substituted without touching pipeline code.
package storage

import (
	"context"
	"fmt"
)

// Store is the object-store collaborator contract. Paths are opaque
// strings; callers assemble them as {bucket_prefix}/{run_id}/{role}/{filename}.
type Store interface {
	// Put uploads the local file at localPath to logicalPath and returns
	// its storage URI. Re-uploading under the same logical path is a
	// programmer error unless the caller has opted into overwrite.
	Put(ctx context.Context, localPath, logicalPath string) (storageURI string, err error)
	// Get downloads logicalPath to a local temp path and returns it.
	Get(ctx context.Context, logicalPath string) (localPath string, err error)
	// Exists reports whether logicalPath has been written.
	Exists(ctx context.Context, logicalPath string) (bool, error)
}

// BuildPath assembles the canonical {bucket_prefix}/{run_id}/{role}/{filename} path.
func BuildPath(bucketPrefix, runID, role, filename string) string {
	return fmt.Sprintf("%s/%s/%s/%s", bucketPrefix, runID, role, filename)
}
