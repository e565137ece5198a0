package processor

import (
	"github.com/crosslock/CrossChain-Solver/mongodb"
	"gopkg.in/mgo.v2/bson"
)

// Persist the processor's durable attempt record, keyed by the action's
// uniqueness token. State is written before every side-effecting step so
// a crash resumes mid-action with the same fee and nonce.
type Persist interface {
	FindTransaction(uniqToken string) (*mongodb.MgoTransaction, error)
	AddTransaction(mt *mongodb.MgoTransaction) error
	UpdateTransaction(uniqToken string, updates map[string]interface{}) error
	AppendPublishedTx(uniqToken, txHash string) error
}

// MongoPersist the mongodb backed Persist
type MongoPersist struct{}

// NewMongoPersist new mongo persist
func NewMongoPersist() *MongoPersist {
	return &MongoPersist{}
}

// FindTransaction implements Persist
func (p *MongoPersist) FindTransaction(uniqToken string) (*mongodb.MgoTransaction, error) {
	mt, err := mongodb.FindTransaction(uniqToken)
	if err != nil {
		if mongodb.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return mt, nil
}

// AddTransaction implements Persist
func (p *MongoPersist) AddTransaction(mt *mongodb.MgoTransaction) error {
	err := mongodb.AddTransaction(mt)
	if mongodb.IsDupError(err) {
		return nil
	}
	return err
}

// UpdateTransaction implements Persist
func (p *MongoPersist) UpdateTransaction(uniqToken string, updates map[string]interface{}) error {
	return mongodb.UpdateTransaction(uniqToken, bson.M(updates))
}

// AppendPublishedTx implements Persist
func (p *MongoPersist) AppendPublishedTx(uniqToken, txHash string) error {
	return mongodb.AppendPublishedTx(uniqToken, txHash)
}
