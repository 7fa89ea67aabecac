package pipeteer

// Transaction is the scoped multi-queue atomic commit described in the
// queue contract: activity completion (push result + pop input) and
// workflow step transitions (pop consumed, push next state, push child
// work) both need it so a crash mid-commit leaves the system in a
// consistent, replayable state.
//
// There is no Transaction type here; the contract is expressed as
// Backend.Transact, which is implemented per storage (storage/sql binds
// it to one bun.Tx). Call sites look like:
//
//	err := backend.Transact(ctx, func(ctx context.Context, tx Backend) error {
//	        qout, err := tx.Queue(ctx, outPath)
//	        ...
//	        if err := QueueOf[B](qout).Push(ctx, key, result); err != nil {
//	                return err
//	        }
//	        return QueueOf[A](qin).Pop(ctx, key)
//	})
//
// Operations outside any Transact call auto-commit individually, which
// is the "read-auto-commit" one-shot session the queue contract allows
// for reads and for single mutations that don't need to be paired with
// another queue's mutation.
