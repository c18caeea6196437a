package signing

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/yourusername/ballot/pkg/encoding"
)

// Transaction is a signed operation payload
type Transaction struct {
	Payload   []byte
	Signature []byte
}

// DecodeTransaction parses the hex wire form produced by Encode
func DecodeTransaction(hexData string) (*Transaction, error) {
	payload, sig, err := encoding.DecodeTransaction(hexData)
	if err != nil {
		return nil, err
	}
	return &Transaction{Payload: payload, Signature: sig}, nil
}

// Encode returns the hex wire form of the transaction
func (tx *Transaction) Encode() (string, error) {
	return encoding.EncodeTransaction(tx.Payload, tx.Signature)
}

// SigningHash returns the keccak256 hash of the payload, which is what the
// signature covers
func (tx *Transaction) SigningHash() common.Hash {
	return crypto.Keccak256Hash(tx.Payload)
}

// Hash identifies the transaction. It covers the signature too, so the same
// payload signed by two callers gives two transactions.
func (tx *Transaction) Hash() common.Hash {
	return crypto.Keccak256Hash(tx.Payload, tx.Signature)
}

// Sender recovers the address that signed the payload. A tampered payload
// recovers to some other address rather than failing.
func (tx *Transaction) Sender() (common.Address, error) {
	pub, err := crypto.SigToPub(tx.SigningHash().Bytes(), tx.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Operation decodes the payload
func (tx *Transaction) Operation() (*encoding.Operation, error) {
	return encoding.DecodePayload(tx.Payload)
}
