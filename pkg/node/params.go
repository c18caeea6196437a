package node

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// paramError is a malformed or missing positional parameter
type paramError struct {
	index int
	msg   string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("param %d: %s", e.index, e.msg)
}

func paramString(params []json.RawMessage, i int) (string, error) {
	if i >= len(params) {
		return "", &paramError{i, "missing"}
	}
	var s string
	if err := json.Unmarshal(params[i], &s); err != nil {
		return "", &paramError{i, "expected a string"}
	}
	return s, nil
}

func paramAddress(params []json.RawMessage, i int) (common.Address, error) {
	s, err := paramString(params, i)
	if err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, &paramError{i, fmt.Sprintf("invalid address %q", s)}
	}
	return common.HexToAddress(s), nil
}

func paramHash(params []json.RawMessage, i int) (common.Hash, error) {
	s, err := paramString(params, i)
	if err != nil {
		return common.Hash{}, err
	}
	var h common.Hash
	if err := h.UnmarshalText([]byte(s)); err != nil {
		return common.Hash{}, &paramError{i, fmt.Sprintf("invalid hash %q", s)}
	}
	return h, nil
}

// paramUint reads an unsigned integer. If the parameter is absent def is
// returned instead.
func paramUint(params []json.RawMessage, i int, def uint64, required bool) (uint64, error) {
	if i >= len(params) {
		if required {
			return 0, &paramError{i, "missing"}
		}
		return def, nil
	}
	var n uint64
	if err := json.Unmarshal(params[i], &n); err != nil {
		return 0, &paramError{i, "expected an unsigned integer"}
	}
	return n, nil
}
