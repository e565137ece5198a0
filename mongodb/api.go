package mongodb

import (
	"time"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

var (
	collSwap          *mgo.Collection
	collTransaction   *mgo.Collection
	collReservedNonce *mgo.Collection
	collBlockCursor   *mgo.Collection
	collNonceLock     *mgo.Collection
)

const maxCountOfResults = 5000

func getOrInitCollection(table string, collection **mgo.Collection, indexKey ...string) *mgo.Collection {
	if *collection == nil {
		*collection = database.C(table)
		if len(indexKey) != 0 {
			_ = (*collection).EnsureIndexKey(indexKey...)
		}
	}
	return *collection
}

func getCollection(table string) *mgo.Collection {
	switch table {
	case tbSwaps:
		return getOrInitCollection(table, &collSwap, "status", "resumeat")
	case tbTransactions:
		return getOrInitCollection(table, &collTransaction, "swapid", "status")
	case tbReservedNonces:
		return getOrInitCollection(table, &collReservedNonce, "network", "address")
	case tbBlockCursors:
		return getOrInitCollection(table, &collBlockCursor)
	case tbNonceLocks:
		return getOrInitCollection(table, &collNonceLock)
	default:
		panic("unknown table " + table)
	}
}

func deinitCollections() {
	collSwap = nil
	collTransaction = nil
	collReservedNonce = nil
	collBlockCursor = nil
	collNonceLock = nil
}

// --------------- swap --------------------------------

// AddSwap add swap. Returns ErrItemIsDup when the commit id is already
// registered, which makes swap creation idempotent.
func AddSwap(ms *MgoSwap) error {
	return mgoError(getCollection(tbSwaps).Insert(ms))
}

// FindSwap find swap by commit id
func FindSwap(commitID string) (*MgoSwap, error) {
	var result MgoSwap
	err := getCollection(tbSwaps).FindId(commitID).One(&result)
	if err != nil {
		return nil, mgoError(err)
	}
	return &result, nil
}

// UpdateSwapStatusIf update swap status and reschedule time only when
// the swap still carries the expected status. Returns ErrItemNotFound
// when a concurrent writer moved the swap first, so a stale caller can
// never overwrite a fresher transition.
func UpdateSwapStatusIf(commitID string, fromStatus, status SwapStatus, resumeAt int64, memo string) error {
	updates := bson.M{"status": status, "resumeat": resumeAt, "timestamp": time.Now().Unix()}
	if memo != "" {
		updates["memo"] = memo
	}
	return mgoError(getCollection(tbSwaps).Update(
		bson.M{"_id": commitID, "status": fromStatus},
		bson.M{"$set": updates}))
}

// UpdateSwapQuote store the quoted destination amount and fee
func UpdateSwapQuote(commitID, dstAmount, feeAmount string) error {
	updates := bson.M{"dstamount": dstAmount, "feeamount": feeAmount, "timestamp": time.Now().Unix()}
	return mgoError(getCollection(tbSwaps).UpdateId(commitID, bson.M{"$set": updates}))
}

// UpdateSwapHashlock store the generated hashlock before the destination
// lock is attempted, so a crash between the two never loses the secret.
func UpdateSwapHashlock(commitID, hashlock, secret string) error {
	updates := bson.M{"hashlock": hashlock, "secret": secret, "timestamp": time.Now().Unix()}
	return mgoError(getCollection(tbSwaps).UpdateId(commitID, bson.M{"$set": updates}))
}

// UpdateSwapTimelocks store observed timelocks
func UpdateSwapTimelocks(commitID string, srcTimelock, dstTimelock int64) error {
	updates := bson.M{"timestamp": time.Now().Unix()}
	if srcTimelock != 0 {
		updates["srctimelock"] = srcTimelock
	}
	if dstTimelock != 0 {
		updates["dsttimelock"] = dstTimelock
	}
	return mgoError(getCollection(tbSwaps).UpdateId(commitID, bson.M{"$set": updates}))
}

// UpdateSwapLockObserved record the depositor's source lock. Kept as a
// flag instead of a direct status transition because the lock is often
// scanned while the saga is still confirming our own destination lock.
func UpdateSwapLockObserved(commitID string, srcTimelock int64) error {
	updates := bson.M{"lockobserved": true, "timestamp": time.Now().Unix()}
	if srcTimelock != 0 {
		updates["srctimelock"] = srcTimelock
	}
	return mgoError(getCollection(tbSwaps).UpdateId(commitID, bson.M{"$set": updates}))
}

// UpdateSwapLockSigRequest record the depositor's request that we submit
// the source lock on their behalf, and make the swap due immediately so
// the saga picks the request up without waiting a poll round.
func UpdateSwapLockSigRequest(commitID string, timelock int64) error {
	updates := bson.M{
		"locksigrequested": true,
		"locksigtimelock":  timelock,
		"resumeat":         time.Now().Unix(),
		"timestamp":        time.Now().Unix(),
	}
	return mgoError(getCollection(tbSwaps).UpdateId(commitID, bson.M{"$set": updates}))
}

// FindSwapsWithStatus find due swaps with status, registered after septime
func FindSwapsWithStatus(status SwapStatus, septime int64) ([]*MgoSwap, error) {
	result := make([]*MgoSwap, 0, 20)
	qry := bson.M{
		"status":   status,
		"inittime": bson.M{"$gte": septime},
		"resumeat": bson.M{"$lte": time.Now().Unix()},
	}
	q := getCollection(tbSwaps).Find(qry).Sort("inittime").Limit(maxCountOfResults)
	err := q.All(&result)
	if err != nil {
		return nil, mgoError(err)
	}
	return result, nil
}

// FindNonRefundedSwaps swaps holding a confirmed lock transaction but
// neither a redeem nor a refund transaction. The safety net against
// lost or expired workflow state.
func FindNonRefundedSwaps(septime int64) ([]*MgoSwap, error) {
	swaps, err := findSwapsWithStatusIn([]SwapStatus{SwapDstLocking, SwapAwaitingLock, SwapRedeeming, SwapRefunding}, septime)
	if err != nil {
		return nil, err
	}
	result := make([]*MgoSwap, 0, len(swaps))
	for _, swap := range swaps {
		txs, errf := FindSwapTransactions(swap.Key)
		if errf != nil {
			return nil, errf
		}
		if IsNonRefundedSwap(swap, txs) {
			result = append(result, swap)
		}
	}
	return result, nil
}

func findSwapsWithStatusIn(statuses []SwapStatus, septime int64) ([]*MgoSwap, error) {
	result := make([]*MgoSwap, 0, 20)
	qry := bson.M{
		"status":   bson.M{"$in": statuses},
		"inittime": bson.M{"$gte": septime},
	}
	err := getCollection(tbSwaps).Find(qry).Sort("inittime").Limit(maxCountOfResults).All(&result)
	if err != nil {
		return nil, mgoError(err)
	}
	return result, nil
}

// IsNonRefundedSwap reports whether the swap has a completed lock
// transaction and no completed redeem or refund transaction.
func IsNonRefundedSwap(swap *MgoSwap, txs []*MgoTransaction) bool {
	var hasLock, hasRedeemOrRefund bool
	for _, tx := range txs {
		if tx.Status != TxCompleted {
			continue
		}
		switch tx.TxType {
		case "HTLCLock":
			hasLock = true
		case "HTLCRedeem", "HTLCRefund":
			hasRedeemOrRefund = true
		}
	}
	return hasLock && !hasRedeemOrRefund
}

// --------------- transaction --------------------------------

// AddTransaction add transaction record keyed by its uniqueness token
func AddTransaction(mt *MgoTransaction) error {
	return mgoError(getCollection(tbTransactions).Insert(mt))
}

// FindTransaction find transaction by uniqueness token
func FindTransaction(uniqToken string) (*MgoTransaction, error) {
	var result MgoTransaction
	err := getCollection(tbTransactions).FindId(uniqToken).One(&result)
	if err != nil {
		return nil, mgoError(err)
	}
	return &result, nil
}

// FindSwapTransactions all transactions of a swap
func FindSwapTransactions(swapID string) ([]*MgoTransaction, error) {
	result := make([]*MgoTransaction, 0, 4)
	err := getCollection(tbTransactions).Find(bson.M{"swapid": swapID}).All(&result)
	if err != nil {
		return nil, mgoError(err)
	}
	return result, nil
}

// UpdateTransaction update transaction fields by uniqueness token
func UpdateTransaction(uniqToken string, updates bson.M) error {
	updates["timestamp"] = time.Now().Unix()
	return mgoError(getCollection(tbTransactions).UpdateId(uniqToken, bson.M{"$set": updates}))
}

// AppendPublishedTx record one more published tx hash of this logical
// action. The list is never truncated, any entry may confirm.
func AppendPublishedTx(uniqToken, txHash string) error {
	err := getCollection(tbTransactions).UpdateId(uniqToken,
		bson.M{
			"$set":      bson.M{"txhash": txHash, "timestamp": time.Now().Unix()},
			"$addToSet": bson.M{"publishedtxs": txHash},
		})
	return mgoError(err)
}

// --------------- reserved nonce --------------------------------

// AddReservedNonce durably record the nonce allocated to a uniqueness token
func AddReservedNonce(mr *MgoReservedNonce) error {
	return mgoError(getCollection(tbReservedNonces).Insert(mr))
}

// FindReservedNonce find by composite key network:address:uniqToken
func FindReservedNonce(key string) (*MgoReservedNonce, error) {
	var result MgoReservedNonce
	err := getCollection(tbReservedNonces).FindId(key).One(&result)
	if err != nil {
		return nil, mgoError(err)
	}
	return &result, nil
}

// --------------- block cursor --------------------------------

// FindBlockCursor the last fully scanned block of a network
func FindBlockCursor(network string) (*MgoBlockCursor, error) {
	var result MgoBlockCursor
	err := getCollection(tbBlockCursors).FindId(network).One(&result)
	if err != nil {
		return nil, mgoError(err)
	}
	return &result, nil
}

// UpdateBlockCursor advance the scan cursor of a network
func UpdateBlockCursor(network string, height uint64) error {
	_, err := getCollection(tbBlockCursors).UpsertId(network,
		bson.M{"$set": bson.M{"height": height, "timestamp": time.Now().Unix()}})
	return mgoError(err)
}

// --------------- nonce lock --------------------------------

// TryLockNonce try to take the (network, address) allocation lease.
// Returns ErrLockIsHeld while another live lease owns it; an expired
// lease is taken over.
func TryLockNonce(key, leaseID string, ttl time.Duration) error {
	now := time.Now().Unix()
	lock := &MgoNonceLock{
		Key:      key,
		LeaseID:  leaseID,
		ExpireAt: now + int64(ttl.Seconds()),
	}
	err := getCollection(tbNonceLocks).Insert(lock)
	if err == nil {
		return nil
	}
	if !mgo.IsDup(err) {
		return mgoError(err)
	}
	// conditional takeover of an expired lease
	err = getCollection(tbNonceLocks).Update(
		bson.M{"_id": key, "expireat": bson.M{"$lt": now}},
		bson.M{"$set": bson.M{"leaseid": leaseID, "expireat": lock.ExpireAt}})
	if err != nil {
		if errsIsNotFound(err) {
			return ErrLockIsHeld
		}
		return mgoError(err)
	}
	return nil
}

// UnlockNonce release the lease if we still own it
func UnlockNonce(key, leaseID string) error {
	err := getCollection(tbNonceLocks).Remove(bson.M{"_id": key, "leaseid": leaseID})
	if err != nil && !errsIsNotFound(err) {
		return mgoError(err)
	}
	return nil
}

func errsIsNotFound(err error) bool {
	return err == mgo.ErrNotFound
}
