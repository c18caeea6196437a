// Package signing authenticates ballot callers: operations are signed with a
// secp256k1 key and the caller is recovered from the signature.
package signing

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/yourusername/ballot/pkg/encoding"
)

// Signer signs ballot operations with a secp256k1 private key
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner creates a signer for the given private key
func NewSigner(key *ecdsa.PrivateKey) (*Signer, error) {
	if key == nil {
		return nil, errors.New("private key is nil")
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the caller address operations signed by s resolve to
func (s *Signer) Address() common.Address {
	return s.address
}

// Sign encodes op and signs the keccak256 hash of the payload
func (s *Signer) Sign(op *encoding.Operation) (*Transaction, error) {
	payload, err := encoding.EncodePayload(op)
	if err != nil {
		return nil, fmt.Errorf("failed to encode operation: %w", err)
	}

	sig, err := crypto.Sign(crypto.Keccak256(payload), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	return &Transaction{Payload: payload, Signature: sig}, nil
}
