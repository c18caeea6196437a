package encoding

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yourusername/ballot/pkg/ballot"
)

const PayloadVersion byte = 0x01

// SignatureLength is the size of a recoverable secp256k1 signature [R || S || V]
const SignatureLength = 65

// OperationType represents the type of ballot operation
type OperationType byte

const (
	OperationTypeDeploy     OperationType = 0x01
	OperationTypeGrantRight OperationType = 0x02
	OperationTypeVote       OperationType = 0x03
	OperationTypeDelegate   OperationType = 0x04
)

func (t OperationType) String() string {
	switch t {
	case OperationTypeDeploy:
		return "deploy"
	case OperationTypeGrantRight:
		return "grantRight"
	case OperationTypeVote:
		return "vote"
	case OperationTypeDelegate:
		return "delegate"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// Operation is a decoded ballot call. Ballot is the zero address for deploys.
// Only the body fields matching Type are encoded.
type Operation struct {
	Type      OperationType
	Ballot    common.Address
	Nonce     uint64
	Proposals []ballot.ProposalName // deploy
	Target    common.Address        // grant right, delegate
	Proposal  uint64                // vote
}

// EncodePayload encodes a ballot operation into a binary payload
func EncodePayload(op *Operation) ([]byte, error) {
	buf := new(bytes.Buffer)

	// Version
	buf.WriteByte(PayloadVersion)

	// Operation type
	buf.WriteByte(byte(op.Type))

	// Ballot address
	buf.Write(op.Ballot.Bytes())

	// Nonce
	if err := writeVarint(buf, op.Nonce); err != nil {
		return nil, err
	}

	switch op.Type {
	case OperationTypeDeploy:
		if len(op.Proposals) == 0 {
			return nil, errors.New("deploy needs at least one proposal")
		}
		if err := writeVarint(buf, uint64(len(op.Proposals))); err != nil {
			return nil, err
		}
		for _, name := range op.Proposals {
			buf.Write(name[:])
		}
	case OperationTypeGrantRight, OperationTypeDelegate:
		buf.Write(op.Target.Bytes())
	case OperationTypeVote:
		if err := writeVarint(buf, op.Proposal); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown operation type: %s", op.Type)
	}

	return buf.Bytes(), nil
}

// DecodePayload decodes a binary payload into an operation
func DecodePayload(data []byte) (*Operation, error) {
	buf := bytes.NewReader(data)
	op := &Operation{}

	// Version
	version, err := buf.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("failed to read version: %w", err)
	}
	if version != PayloadVersion {
		return nil, fmt.Errorf("unsupported payload version: %d", version)
	}

	// Operation type
	opTypeByte, err := buf.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("failed to read operation type: %w", err)
	}
	op.Type = OperationType(opTypeByte)

	// Ballot address
	if op.Ballot, err = readAddress(buf); err != nil {
		return nil, fmt.Errorf("failed to read ballot address: %w", err)
	}

	// Nonce
	if op.Nonce, err = readVarint(buf); err != nil {
		return nil, fmt.Errorf("failed to read nonce: %w", err)
	}

	switch op.Type {
	case OperationTypeDeploy:
		count, err := readVarint(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to read proposal count: %w", err)
		}
		if count == 0 {
			return nil, errors.New("deploy needs at least one proposal")
		}
		if count > uint64(buf.Len()/ballot.NameLength) {
			return nil, fmt.Errorf("proposal count %d exceeds payload", count)
		}
		op.Proposals = make([]ballot.ProposalName, count)
		for i := range op.Proposals {
			if _, err := io.ReadFull(buf, op.Proposals[i][:]); err != nil {
				return nil, fmt.Errorf("failed to read proposal %d: %w", i, err)
			}
		}
	case OperationTypeGrantRight, OperationTypeDelegate:
		if op.Target, err = readAddress(buf); err != nil {
			return nil, fmt.Errorf("failed to read target address: %w", err)
		}
	case OperationTypeVote:
		if op.Proposal, err = readVarint(buf); err != nil {
			return nil, fmt.Errorf("failed to read proposal index: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown operation type: %s", op.Type)
	}

	if buf.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after %s payload", buf.Len(), op.Type)
	}

	return op, nil
}

// EncodeTransaction packs a payload and its signature into a hex string
func EncodeTransaction(payload, signature []byte) (string, error) {
	if len(signature) != SignatureLength {
		return "", fmt.Errorf("signature is %d bytes, want %d", len(signature), SignatureLength)
	}

	buf := new(bytes.Buffer)
	if err := writeVarint(buf, uint64(len(payload))); err != nil {
		return "", err
	}
	buf.Write(payload)
	buf.Write(signature)

	return hex.EncodeToString(buf.Bytes()), nil
}

// DecodeTransaction splits a hex encoded transaction into payload and signature
func DecodeTransaction(hexData string) (payload, signature []byte, err error) {
	data, err := hex.DecodeString(strings.TrimPrefix(hexData, "0x"))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid hex: %w", err)
	}

	buf := bytes.NewReader(data)

	payloadLen, err := readVarint(buf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read payload length: %w", err)
	}
	if payloadLen > uint64(buf.Len()) {
		return nil, nil, fmt.Errorf("payload length %d exceeds transaction", payloadLen)
	}
	payload = make([]byte, payloadLen)
	if _, err := io.ReadFull(buf, payload); err != nil {
		return nil, nil, fmt.Errorf("failed to read payload: %w", err)
	}

	if buf.Len() != SignatureLength {
		return nil, nil, fmt.Errorf("signature is %d bytes, want %d", buf.Len(), SignatureLength)
	}
	signature = make([]byte, SignatureLength)
	if _, err := io.ReadFull(buf, signature); err != nil {
		return nil, nil, fmt.Errorf("failed to read signature: %w", err)
	}

	return payload, signature, nil
}

// writeVarint writes a varint to the buffer
func writeVarint(buf *bytes.Buffer, n uint64) error {
	tmp := make([]byte, binary.MaxVarintLen64)
	size := binary.PutUvarint(tmp, n)
	_, err := buf.Write(tmp[:size])
	return err
}

// readVarint reads a varint from the reader
func readVarint(r io.ByteReader) (uint64, error) {
	return binary.ReadUvarint(r)
}

func readAddress(r io.Reader) (common.Address, error) {
	var addr common.Address
	if _, err := io.ReadFull(r, addr[:]); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}
