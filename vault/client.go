package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	settlePath = "settle"
	refundPath = "refund"
	bountyPath = "bounty-release"
)

// Client talks to the escrow vault service that holds locked bid funds
// on chain. Both calls are safe to repeat for the same lock: the vault
// keys operations on the lock reference, so a retry after an uncertain
// outcome can not move funds twice.
type Client struct {
	endpoint string
}

// NewClient returns a new vault client instance.
func NewClient(endpoint string) *Client {
	return &Client{endpoint: endpoint}
}

// Receipt is the vault's answer to a settle or refund request.
type Receipt struct {
	Success     bool   `json:"success"`
	TxReference string `json:"tx_reference"`
}

type settleReq struct {
	LockRef        string `json:"lock_ref"`
	SellerAddress  string `json:"seller_address"`
	BuyerID        uint64 `json:"buyer_id"`
	LeadID         uint64 `json:"lead_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

type refundReq struct {
	LockRef        string `json:"lock_ref"`
	BuyerID        uint64 `json:"buyer_id"`
	LeadID         uint64 `json:"lead_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Settle moves the locked funds of a winning bid to the seller address.
func (c *Client) Settle(
	ctx context.Context,
	lockRef string,
	sellerAddress string,
	buyerID uint64,
	leadID uint64,
) (*Receipt, error) {
	if lockRef == "" {
		return nil, errors.New("missing vault lock reference")
	}

	r := &Receipt{}
	return r, c.httpPost(ctx, settlePath, &settleReq{
		LockRef:        lockRef,
		SellerAddress:  sellerAddress,
		BuyerID:        buyerID,
		LeadID:         leadID,
		IdempotencyKey: uuid.New().String(),
	}, r)
}

// Refund returns the locked funds of a losing bid to the buyer.
func (c *Client) Refund(
	ctx context.Context,
	lockRef string,
	buyerID uint64,
	leadID uint64,
) (*Receipt, error) {
	if lockRef == "" {
		return nil, errors.New("missing vault lock reference")
	}

	r := &Receipt{}
	return r, c.httpPost(ctx, refundPath, &refundReq{
		LockRef:        lockRef,
		BuyerID:        buyerID,
		LeadID:         leadID,
		IdempotencyKey: uuid.New().String(),
	}, r)
}

type bountyReleaseReq struct {
	PoolID         uint64 `json:"pool_id"`
	LeadID         uint64 `json:"lead_id"`
	SellerAddress  string `json:"seller_address"`
	Amount         string `json:"amount"`
	VerticalSlug   string `json:"vertical_slug"`
	IdempotencyKey string `json:"idempotency_key"`
}

// ReleaseBounty pays a matched bounty pool amount out to the seller.
func (c *Client) ReleaseBounty(
	ctx context.Context,
	poolID uint64,
	leadID uint64,
	sellerAddress string,
	amount decimal.Decimal,
	verticalSlug string,
) (*Receipt, error) {
	r := &Receipt{}
	return r, c.httpPost(ctx, bountyPath, &bountyReleaseReq{
		PoolID:         poolID,
		LeadID:         leadID,
		SellerAddress:  sellerAddress,
		Amount:         amount.String(),
		VerticalSlug:   verticalSlug,
		IdempotencyKey: uuid.New().String(),
	}, r)
}

type vaultResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (c *Client) httpPost(ctx context.Context, path string, payload, result interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s", c.endpoint, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	vr := &vaultResponse{}
	if err := json.Unmarshal(respBody, vr); err != nil {
		return err
	}

	if vr.Code != http.StatusOK {
		return fmt.Errorf("request vault service failed, err:%s", vr.Msg)
	}

	return json.Unmarshal(vr.Data, result)
}
