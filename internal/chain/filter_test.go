package chain

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestNewLogFilter(t *testing.T) {
	query, err := NewLogFilter("0x1F98431c8aD98523631AE4a59f267346ea31F984", 501, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if query.FromBlock.Uint64() != 501 || query.ToBlock.Uint64() != 1000 {
		t.Fatalf("range mismatch: %s..%s", query.FromBlock, query.ToBlock)
	}
	want := common.HexToAddress("0x1f98431c8ad98523631ae4a59f267346ea31f984")
	if len(query.Addresses) != 1 || query.Addresses[0] != want {
		t.Fatalf("addresses mismatch: %v", query.Addresses)
	}
}

func TestNewLogFilterKeepsInvertedRange(t *testing.T) {
	query, err := NewLogFilter("0x1111111111111111111111111111111111111111", 1000, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if query.FromBlock.Uint64() != 1000 || query.ToBlock.Uint64() != 0 {
		t.Fatalf("range mismatch: %s..%s", query.FromBlock, query.ToBlock)
	}
}

func TestNewLogFilterInvalidAddress(t *testing.T) {
	for _, input := range []string{"", "0x1234", "not-an-address"} {
		if _, err := NewLogFilter(input, 1, 2); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("expected invalid address for %q, got %v", input, err)
		}
	}
}
