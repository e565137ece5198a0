// Package signer is the client of the external signer service.
// The solver holds no private keys, signing is keyed by network family
// and from address.
package signer

import (
	"errors"
	"fmt"
	"time"

	"github.com/crosslock/CrossChain-Solver/log"
	"github.com/go-resty/resty/v2"
)

// signer errors
var (
	ErrSignerNotInited = errors.New("signer client not inited")
	ErrSignFailed      = errors.New("sign failed")
)

var (
	restyClient *resty.Client

	signerAPIPrefix string

	retrySignCount    = 3
	retrySignInterval = 2 * time.Second
)

// Init init the signer client
func Init(apiPrefix string, timeoutSeconds uint64) {
	signerAPIPrefix = apiPrefix
	restyClient = resty.New().
		SetTimeout(time.Duration(timeoutSeconds)*time.Second).
		SetHeader("Content-Type", "application/json")
	log.Info("[signer] init signer client", "apiPrefix", apiPrefix, "timeout", timeoutSeconds)
}

// SignRequest sign request payload
type SignRequest struct {
	Family   string `json:"family"`
	Address  string `json:"address"`
	Payload  string `json:"payload"` // unsigned tx, chain-native encoding, hex
	SignType string `json:"signType,omitempty"`
}

// SignResponse sign response payload
type SignResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   struct {
		SignedTx string `json:"signedTx"` // ready-to-publish raw tx, hex
		TxHash   string `json:"txHash"`
	} `json:"data"`
}

// Sign submit the unsigned payload and receive the ready-to-publish
// signed transaction. Retries transport errors a bounded number of times.
func Sign(family, address, payload string) (signedTx, txHash string, err error) {
	if restyClient == nil {
		return "", "", ErrSignerNotInited
	}
	req := &SignRequest{
		Family:  family,
		Address: address,
		Payload: payload,
	}
	var result SignResponse
	for i := 0; i < retrySignCount; i++ {
		var resp *resty.Response
		resp, err = restyClient.R().
			SetBody(req).
			SetResult(&result).
			Post(signerAPIPrefix + "/sign")
		if err == nil && resp.IsSuccess() {
			break
		}
		if err == nil {
			err = fmt.Errorf("signer http status %v", resp.Status())
		}
		log.Warn("[signer] sign request failed", "family", family, "address", address, "err", err)
		time.Sleep(retrySignInterval)
	}
	if err != nil {
		return "", "", err
	}
	if result.Status != "Success" {
		return "", "", fmt.Errorf("%w: %v", ErrSignFailed, result.Error)
	}
	return result.Data.SignedTx, result.Data.TxHash, nil
}
