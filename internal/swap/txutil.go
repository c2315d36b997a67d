package swap

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var computeBudgetProgram = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

// setComputeUnitPrice is the ComputeBudget instruction discriminator for
// SetComputeUnitPrice(micro_lamports: u64).
const setComputeUnitPrice = 3

// DecodeTransaction parses a base64 transaction as returned by the
// aggregator's swap endpoint.
func DecodeTransaction(encoded string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode transaction base64: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("deserialize transaction: %w", err)
	}
	return tx, nil
}

// RewriteComputeUnitPrice overwrites the transaction's existing
// SetComputeUnitPrice instruction with the given micro-lamport price.
// The aggregator builds transactions with a placeholder fee and expects
// the client to substitute its own. Returns false when the transaction
// carries no such instruction; the placeholder then stands.
func RewriteComputeUnitPrice(tx *solana.Transaction, microLamports uint64) (bool, error) {
	if microLamports == 0 {
		return false, nil
	}

	msg := &tx.Message
	for i := range msg.Instructions {
		ix := &msg.Instructions[i]
		prog, err := msg.Program(ix.ProgramIDIndex)
		if err != nil {
			return false, fmt.Errorf("resolve program for instruction %d: %w", i, err)
		}
		if !prog.Equals(computeBudgetProgram) {
			continue
		}
		if len(ix.Data) != 9 || ix.Data[0] != setComputeUnitPrice {
			continue
		}

		data := make([]byte, 9)
		data[0] = setComputeUnitPrice
		binary.LittleEndian.PutUint64(data[1:], microLamports)
		ix.Data = solana.Base58(data)
		return true, nil
	}
	return false, nil
}
