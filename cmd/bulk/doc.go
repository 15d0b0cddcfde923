// Command bulk derives thumbnails and compressed renditions for every asset
// under a folder of the configured object store.
//
// Usage:
//
//	bulk [flags]
//
// Flags:
//
//	-folder     Folder to process. Prompted for when omitted on a terminal.
//	-recursive  Include subfolders (default true).
//	-height     Thumbnail height in pixels (default from THUMBNAIL_HEIGHT).
//	-format     Compressed video format: webm, mp4, or mkv.
//	-workers    Number of concurrent assets (default from WORKER_POOL_SIZE).
//	-remote     Comma-separated worker URLs. Assets are POSTed to these
//	            instead of being processed in-process.
//
// Environment:
//
// The same variables as the server configure storage, ffmpeg, and
// defaults; a .env file in the working directory is loaded first.
//
// Exit status is 0 when every asset was dispatched, even if some failed;
// failures are reported in the summary. Interruption or a configuration
// error exits 1.
package main
