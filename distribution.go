package rdb

// Distribution returns approximate bucket boundaries for range planning.
// It does not inspect B-tree pages: maxDepth only sets the bucket count, and
// boundaries are found by striding a cursor over the primary bucket's key
// count. It reports up
// to 2^maxDepth boundary keys, each mapped to an estimate of how many keys
// follow it before the next boundary. The leftmost boundary is always
// leftKey itself, the caller-supplied lower bound, rather than whatever key
// actually sorts first in the table.
func (tx *Tx) Distribution(tbl *Table, maxDepth int, leftKey []byte) map[string]int64 {
	bucket := tx.dataBucket(tbl)
	total := bucket.KeyCount()

	result := map[string]int64{string(leftKey): int64(total)}
	if total == 0 {
		return result
	}

	numBuckets := 1 << uint(maxDepth)
	if numBuckets > total {
		numBuckets = total
	}
	perBucket := int64(total) / int64(numBuckets)
	if perBucket < DistributionMinPerBucket {
		perBucket = DistributionMinPerBucket
	}
	result[string(leftKey)] = perBucket

	if numBuckets <= 1 {
		return result
	}

	stride := total / numBuckets
	cur := bucket.Cursor()
	key, _ := cur.First()
	var seen int
	for b := 1; b < numBuckets && key != nil; b++ {
		target := b * stride
		for seen < target && key != nil {
			key, _ = cur.Next()
			seen++
		}
		if key == nil {
			break
		}
		result[string(key)] = perBucket
	}
	return result
}
