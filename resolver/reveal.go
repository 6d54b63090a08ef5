package resolver

import (
	"encoding/base64"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// sealedCommitment is the plaintext a buyer sealed at bid time:
// base64(JSON{amount, nonce}). The nonce keeps equal amounts from
// producing equal blobs.
type sealedCommitment struct {
	Amount string `json:"amount"`
	Nonce  string `json:"nonce"`
}

// RevealState says what a pending bid turned into at closure time.
type RevealState uint8

const (
	// RevealOK means the bid produced a valid plaintext amount.
	RevealOK RevealState = iota + 1
	// RevealExpired means the bid never committed a valid reveal and is
	// dropped from the auction.
	RevealExpired
)

// Reveal is the result of unsealing one pending bid. A bid is either
// revealed with an amount or expired; there is no third state, so a
// malformed commitment can never block closure.
type Reveal struct {
	State  RevealState
	Amount decimal.Decimal
}

// Unseal deterministically decodes a sealed commitment blob. Any
// malformed input (bad base64, bad JSON, non-positive or unparseable
// amount) yields RevealExpired.
func Unseal(commitment string) Reveal {
	raw, err := base64.StdEncoding.DecodeString(commitment)
	if err != nil {
		return Reveal{State: RevealExpired}
	}

	sc := &sealedCommitment{}
	if err := json.Unmarshal(raw, sc); err != nil {
		return Reveal{State: RevealExpired}
	}

	amount, err := decimal.NewFromString(sc.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return Reveal{State: RevealExpired}
	}

	return Reveal{State: RevealOK, Amount: amount}
}

// SealCommitment builds the opaque blob Unseal understands. The bidding
// path uses it when sealing; it lives here so both sides agree on the
// format.
func SealCommitment(amount decimal.Decimal, nonce string) string {
	raw, _ := json.Marshal(&sealedCommitment{
		Amount: amount.String(),
		Nonce:  nonce,
	})
	return base64.StdEncoding.EncodeToString(raw)
}
