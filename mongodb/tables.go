package mongodb

import "time"

// collection names
const (
	tbSwaps          string = "Swaps"
	tbTransactions   string = "Transactions"
	tbReservedNonces string = "ReservedNonces"
	tbBlockCursors   string = "BlockCursors"
	tbNonceLocks     string = "NonceLocks"
)

// MgoSwap the unit of work for one cross-chain exchange,
// keyed by the 32-byte commit identifier of the source chain event.
type MgoSwap struct {
	Key         string `bson:"_id"` // commit id, lowercase hex
	CommitTx    string `bson:"committx"`
	SrcNetwork  string `bson:"srcnetwork"`
	SrcToken    string `bson:"srctoken"`
	DstNetwork  string `bson:"dstnetwork"`
	DstToken    string `bson:"dsttoken"`
	Depositor   string `bson:"depositor"`
	Receiver    string `bson:"receiver"` // managed account the deposit named
	DstAddress  string `bson:"dstaddress"`
	SrcAmount   string `bson:"srcamount"`
	DstAmount   string `bson:"dstamount"`
	FeeAmount   string `bson:"feeamount"`
	Hashlock    string `bson:"hashlock"`
	Secret      string `bson:"secret"`
	SrcTimelock int64  `bson:"srctimelock"`
	DstTimelock int64  `bson:"dsttimelock"`
	// the listener may see the depositor's source lock before the saga
	// finished confirming our destination lock, the observation is kept
	// here until the saga is ready to act on it
	LockObserved     bool       `bson:"lockobserved,omitempty"`
	LockSigRequested bool       `bson:"locksigrequested,omitempty"`
	LockSigTimelock  int64      `bson:"locksigtimelock,omitempty"`
	Status           SwapStatus `bson:"status"`
	ResumeAt         int64      `bson:"resumeat"` // unix seconds, swap is due when <= now
	InitTime         int64      `bson:"inittime"`
	Timestamp        int64      `bson:"timestamp"`
	Memo             string     `bson:"memo"`
}

// MgoTransaction one logical on-chain action of a swap, keyed by the
// action's uniqueness token. All published tx hashes are kept because a
// resubmission may or may not have actually landed.
type MgoTransaction struct {
	Key          string   `bson:"_id"` // uniqueness token
	SwapID       string   `bson:"swapid,omitempty"`
	Network      string   `bson:"network"`
	TxType       string   `bson:"txtype"`
	From         string   `bson:"from"`
	To           string   `bson:"to"`
	Value        string   `bson:"value"`
	TxHash       string   `bson:"txhash"`
	PublishedTxs []string `bson:"publishedtxs,omitempty"`
	Nonce        uint64   `bson:"nonce"`
	Fee          string   `bson:"fee,omitempty"` // pinned fee, json encoded
	AttemptCount int      `bson:"attemptcount"`
	ProcState    string   `bson:"procstate"`
	Status       TxStatus `bson:"status"`
	TxHeight     uint64   `bson:"txheight"`
	TxTime       uint64   `bson:"txtime"`
	FeePaid      string   `bson:"feepaid,omitempty"`
	InitTime     int64    `bson:"inittime"`
	Timestamp    int64    `bson:"timestamp"`
	Memo         string   `bson:"memo"`
}

// InitAge how long ago this logical action was first recorded
func (mt *MgoTransaction) InitAge() time.Duration {
	return time.Duration(time.Now().Unix()-mt.InitTime) * time.Second
}

// MgoReservedNonce durable (network, address, uniqueness token) -> nonce
// mapping, read before every allocation so a replayed action reuses its
// nonce verbatim.
type MgoReservedNonce struct {
	Key       string `bson:"_id"` // network:address:uniquenessToken, lowercase
	Network   string `bson:"network"`
	Address   string `bson:"address"`
	UniqToken string `bson:"uniqtoken"`
	Nonce     uint64 `bson:"nonce"`
	Timestamp int64  `bson:"timestamp"`
}

// MgoBlockCursor last confirmed block number the listener fully scanned
type MgoBlockCursor struct {
	Key       string `bson:"_id"` // network name
	Height    uint64 `bson:"height"`
	Timestamp int64  `bson:"timestamp"`
}

// MgoNonceLock a TTL-bounded lease giving one process exclusive right to
// allocate nonces of one (network, address).
type MgoNonceLock struct {
	Key      string `bson:"_id"` // network:address, lowercase
	LeaseID  string `bson:"leaseid"`
	ExpireAt int64  `bson:"expireat"`
}
