// Package service holds the upload, retrieval and login flows.
//
// An upload touches two stores that fail independently: the blob store
// holding the bytes and the metadata store holding the file record. There
// is no transaction spanning both. The blob is always written first and
// the record second, so a record never points at a blob that was not
// stored. The reverse can happen: when the record insert fails after the
// blob was stored, the blob stays behind as an orphan. Orphans are logged
// with their storage key and counted by entfiles_orphaned_blobs_total;
// nothing removes them.
//
// Listing tolerates blobs that went missing after their record was written.
// Such entries are still listed, with a nil download URL.
package service
