/*
Package filesystem provides filesystem operations with retry logic for NFS
stale file handle errors.

The local object store is often an NFS export shared with the service that
uploads the originals. Files replaced on the server side can leave the client
holding a stale handle, and os.Stat or os.Open then fail with ESTALE even
though the path is valid. StatWithRetry and OpenWithRetry retry those calls
with exponential backoff; every other error is returned immediately.

	info, err := filesystem.StatWithRetry(ctx, path, filesystem.DefaultRetryConfig())

Retries are counted in the media_deriver_filesystem_* metrics, labelled by
operation.
*/
package filesystem
