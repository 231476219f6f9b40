package rdb

// WireFunc stands in for "a serialized wire function compiled to a
// callable": the query-language compiler is out of
// scope for this module, so callers pass an already-compiled Go closure
// rather than a serialized function body. The replace pipeline's user
// function and a secondary index's mapping both have this shape; the
// mapping additionally promises not to use its Env for anything beyond the
// single document it was given.
type WireFunc func(old Document, env *Env) (Document, error)

// IndexMapping compiles a document to an index datum.
type IndexMapping func(doc Document, env *Env) (Document, error)

// Env is the evaluation environment a WireFunc/IndexMapping runs in. It
// exposes no cross-table access and no ambient storage handle: a mapping
// attempting a disallowed operation is simply unreachable, because Env
// carries nothing it could use to reach another table or the transaction.
// GC offers a checkpoint hook for
// long-running aggregations — matching the JSON value
// library's "aggregating environment with checkpointed garbage collection"
// that is otherwise out of this module's scope.
type Env struct {
	gc func()
}

func newEnv(gc func()) *Env {
	if gc == nil {
		gc = func() {}
	}
	return &Env{gc: gc}
}

// Checkpoint offers the environment a garbage-collection opportunity. Safe
// to call from within a WireFunc/IndexMapping or from the scan engine
// driving it.
func (e *Env) Checkpoint() {
	if e != nil {
		e.gc()
	}
}
