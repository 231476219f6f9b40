/*
Package rdb implements the document-table storage core of a distributed
document database, mediating between a query layer and a transactional
B-tree key-value engine.

We implement:

 1. Primary-key point operations (get/set/delete/replace) against documents
    stored through a blob indirection: inline for small values, chained
    extents for large ones.

 2. A server-side replace pipeline unifying UPDATE/REPLACE/INSERT/DELETE
    behind a single user function over (old_doc) -> new_doc.

 3. Range scans with a pluggable transform chain and an optional terminal
    aggregator (reduce, or group-map-reduce), bounded by a response-size
    budget with truncation semantics.

 4. Secondary indexes, built from modification reports and maintained
    concurrently across every live index under a single logical write.

 5. Range erase and backfill (ordered replay of key-value pairs and
    deletions, for replication).

# Technical details

**Buckets.** Each table owns a nested bucket namespace: a "data" bucket for
primary rows, a "blocks" bucket for chained blob extents, a "recency" bucket
of per-key write times, an "erasures" bucket logging erased ranges, and one
bucket per live secondary index.

**Stored value.** A reference area (inline bytes, or a chained-extent
pointer plus total size) followed by the canonically encoded document.

**Modification report.** {primary_key, deleted?, added?} — produced by every
point write, consumed by the secondary-index maintainer, then discarded.
*/
package rdb
