package dispatch

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chatframe/roster/list"
)

// wireOp is the compact transport form of one op. Exactly one of the pointers
// is set, matching Op.
type wireOp struct {
	Op     string         `cbor:"1,keyasint"`
	Delete *list.DeleteOp `cbor:"2,keyasint,omitempty"`
	Insert *list.InsertOp `cbor:"3,keyasint,omitempty"`
	Sync   *list.SyncOp   `cbor:"4,keyasint,omitempty"`
}

type wireBatch struct {
	Ops []wireOp `cbor:"1,keyasint"`
}

// EncodeOps packs one op batch for the realtime transport. Ops must be
// reapplied in slice order on the consumer side.
func EncodeOps(ops []list.Op) ([]byte, error) {
	batch := wireBatch{Ops: make([]wireOp, len(ops))}
	for i, op := range ops {
		w := wireOp{Op: op.Op()}
		switch o := op.(type) {
		case *list.DeleteOp:
			w.Delete = o
		case *list.InsertOp:
			w.Insert = o
		case *list.SyncOp:
			w.Sync = o
		default:
			return nil, fmt.Errorf("unencodable op %s", op.Op())
		}
		batch.Ops[i] = w
	}
	return cbor.Marshal(batch)
}

// DecodeOps is the inverse of EncodeOps.
func DecodeOps(data []byte) ([]list.Op, error) {
	var batch wireBatch
	if err := cbor.Unmarshal(data, &batch); err != nil {
		return nil, err
	}
	ops := make([]list.Op, len(batch.Ops))
	for i, w := range batch.Ops {
		switch {
		case w.Delete != nil:
			ops[i] = w.Delete
		case w.Insert != nil:
			ops[i] = w.Insert
		case w.Sync != nil:
			ops[i] = w.Sync
		default:
			return nil, fmt.Errorf("op %d (%s) has no body", i, w.Op)
		}
	}
	return ops, nil
}
