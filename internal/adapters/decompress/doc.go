// Package decompress turns a fetched trace archive into a plain text file.
//
// Two implementations share the same contract: Native decodes zstd and gzip in
// process with klauspost/compress, Exec shells out to the zstd binary. Both
// sniff the input first and hand plain text back untouched, so a sample trace
// or an already-decompressed file flows through without a copy.
package decompress
