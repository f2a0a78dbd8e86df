// Package twemcache handles the public Twitter twemcache cache traces
//
// Design choices:
//   - Clusters are addressed by index and variant; URLs and local names are derived, never configured per file.
//   - Downloads land in <name>.part and are renamed only after the body was read in full.
//   - A complete local copy is reused unless the caller asks for a refetch.
//   - Lines are streamed with bufio.Scanner; records are not parsed here.
package twemcache
