package rdb

import "context"

// ScanResultKind tags which field of a ScanResponse is populated.
type ScanResultKind int

const (
	ResultStream ScanResultKind = iota
	ResultReduction
	ResultGroupMap
	ResultError
)

// StreamItem is one (store_key, document) pair of a streamed scan result.
type StreamItem struct {
	Key []byte
	Doc Document
}

// ScanResponse is the result of an Rget call.
type ScanResponse struct {
	Kind ScanResultKind

	Stream    []StreamItem
	Reduction Document
	GroupMap  map[string]GroupEntry
	Err       error

	LastConsideredKey []byte
	Truncated         bool
	Interrupted       bool
}

// estimateDocSize is the per-document contribution to a streamed response's
// cumulative size budget. It is a flat conservative constant rather than an
// exact encoded size: any size-accurate replacement must preserve the truncation
// contract but will change how many documents fit per chunk.
func estimateDocSize(Document) int { return 250 }

// cancelCheckInterval bounds how often a long traversal polls ctx, so
// cancellation latency is bounded without paying a channel receive per row.
const cancelCheckInterval = 256

// Rget is the range-scan engine: depth-first traversal of rng in
// key order, folding each document through chain, then either streaming the
// survivors (terminal == nil) or folding them into terminal's accumulator.
func (tx *Tx) Rget(ctx context.Context, tbl *Table, rng KeyRange, env *Env, chain []TransformStage, terminal *Terminal) *ScanResponse {
	resp := &ScanResponse{}

	var acc *terminalAccumulator
	if terminal != nil {
		acc = newTerminalAccumulator(*terminal)
	}

	cur := tx.dataBucket(tbl).Cursor()
	blob := tx.primaryBlob(tbl)

	key, raw := rng.seekCursor(cur)
	var cumSize, n int
	for key != nil && rng.contains(key) {
		n++
		if n%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				resp.Interrupted = true
				return resp
			default:
			}
		}

		doc, err := blob.readValue(raw)
		if err != nil {
			resp.Kind, resp.Err, resp.LastConsideredKey = ResultError, err, key
			resp.Stream = nil
			return resp
		}

		docs, err := applyChain(chain, doc, env)
		if err != nil {
			resp.Kind, resp.Err, resp.LastConsideredKey = ResultError, err, key
			resp.Stream = nil
			return resp
		}
		resp.LastConsideredKey = append([]byte(nil), key...)

		if terminal == nil {
			for _, d := range docs {
				resp.Stream = append(resp.Stream, StreamItem{Key: append([]byte(nil), key...), Doc: d})
				cumSize += estimateDocSize(d)
			}
			if cumSize >= RgetChunkBudget {
				resp.Kind, resp.Truncated = ResultStream, true
				tx.db.logger.Debug("rget truncated", "table", tbl.name, "last_key", hexBytes(key), "rows", len(resp.Stream))
				return resp
			}
		} else {
			for _, d := range docs {
				if err := acc.add(d, env); err != nil {
					resp.Kind, resp.Err, resp.LastConsideredKey = ResultError, err, key
					resp.Stream = nil
					return resp
				}
			}
		}

		key, raw = cur.Next()
	}

	if terminal == nil {
		resp.Kind = ResultStream
		return resp
	}
	switch terminal.kind {
	case terminalReduce:
		resp.Kind = ResultReduction
		resp.Reduction = acc.finalizeReduction()
	case terminalGroupMapReduce:
		resp.Kind = ResultGroupMap
		resp.GroupMap = acc.finalizeGroupMap()
	}
	return resp
}
