package swapapi

func convertSwapInfo(swap *Swap, txs []*Transaction) *SwapInfo {
	info := &SwapInfo{
		CommitID:    swap.Key,
		CommitTx:    swap.CommitTx,
		SrcNetwork:  swap.SrcNetwork,
		SrcToken:    swap.SrcToken,
		DstNetwork:  swap.DstNetwork,
		DstToken:    swap.DstToken,
		Depositor:   swap.Depositor,
		DstAddress:  swap.DstAddress,
		SrcAmount:   swap.SrcAmount,
		DstAmount:   swap.DstAmount,
		FeeAmount:   swap.FeeAmount,
		Hashlock:    swap.Hashlock,
		SrcTimelock: swap.SrcTimelock,
		DstTimelock: swap.DstTimelock,
		Status:      swap.Status,
		StatusMsg:   swap.Status.String(),
		InitTime:    swap.InitTime,
		Timestamp:   swap.Timestamp,
		Memo:        swap.Memo,
	}
	// the secret is deliberately not exposed, it is revealed on chain
	// at redeem time and never before
	info.Transactions = make([]*TransactionInfo, 0, len(txs))
	for _, tx := range txs {
		info.Transactions = append(info.Transactions, &TransactionInfo{
			TxType:       tx.TxType,
			Network:      tx.Network,
			From:         tx.From,
			To:           tx.To,
			Value:        tx.Value,
			TxHash:       tx.TxHash,
			PublishedTxs: tx.PublishedTxs,
			Nonce:        tx.Nonce,
			AttemptCount: tx.AttemptCount,
			ProcState:    tx.ProcState,
			Status:       tx.Status.String(),
			TxHeight:     tx.TxHeight,
			FeePaid:      tx.FeePaid,
			Memo:         tx.Memo,
		})
	}
	return info
}
