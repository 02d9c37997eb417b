package store

import (
	"strconv"

	"alumnichat/pkg/store/keys"
	"alumnichat/pkg/store/kv"
)

const systemVersionKey = keys.SystemVersionKey

// recoverSeq returns the largest id ever issued: the highest live id index
// entry, or the floor written when conversations were deleted.
func (db *DB) recoverSeq() (uint64, error) {
	var max uint64
	k, _, err := db.engine.Last([]byte(keys.MessageIDPrefix))
	switch {
	case err == nil:
		id, perr := keys.ParseMessageIDKey(string(k))
		if perr != nil {
			return 0, perr
		}
		max = id
	case !kv.IsNotFound(err):
		return 0, err
	}

	v, err := db.engine.Get([]byte(keys.SystemSeqFloorKey))
	switch {
	case err == nil:
		floor, perr := strconv.ParseUint(string(v), 10, 64)
		if perr != nil {
			return 0, perr
		}
		if floor > max {
			max = floor
		}
	case !kv.IsNotFound(err):
		return 0, err
	}
	return max, nil
}

// CommitWithFloor commits a batch that removes message ids, recording the
// current sequence so removed ids are never handed out again after restart.
func (db *DB) CommitWithFloor(b kv.Batch) error {
	db.floorMu.Lock()
	defer db.floorMu.Unlock()
	floor := strconv.FormatUint(db.seq.Load(), 10)
	if err := b.Set([]byte(keys.SystemSeqFloorKey), []byte(floor)); err != nil {
		return err
	}
	return b.Commit()
}
