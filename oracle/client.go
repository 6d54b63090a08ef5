package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	requestPath     = "tie-break"
	fulfillmentPath = "fulfillment"
)

// Client talks to the VRF coordinator providing verifiable random
// tie-breaks among candidate wallet addresses. Submission is fire and
// forget: the fulfillment arrives later on chain and is picked up by the
// resolution watcher, never by the auction closure path.
type Client struct {
	endpoint     string
	pollInterval time.Duration
	maxAttempts  int
}

// NewClient returns a new oracle client. An empty endpoint yields an
// unconfigured client whose tie-breaks fall back to deterministic order.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint:     endpoint,
		pollInterval: 5 * time.Second,
		maxAttempts:  60,
	}
}

// Configured reports whether a VRF coordinator endpoint is set.
func (c *Client) Configured() bool {
	return c != nil && c.endpoint != ""
}

type tieBreakReq struct {
	LeadID     uint64   `json:"lead_id"`
	Candidates []string `json:"candidates"`
	Kind       string   `json:"kind"`
}

type tieBreakResp struct {
	TxHash string `json:"tx_hash"`
}

// Fulfillment is the coordinator's answer for a pending tie-break.
type Fulfillment struct {
	Fulfilled bool   `json:"fulfilled"`
	Winner    string `json:"winner"`
}

// RequestTieBreak submits a randomness request over the candidate
// addresses and returns the submission transaction hash.
func (c *Client) RequestTieBreak(
	ctx context.Context,
	leadID uint64,
	candidates []string,
	kind string,
) (string, error) {
	if !c.Configured() {
		return "", errors.New("oracle is not configured")
	}

	if len(candidates) < 2 {
		return "", errors.New("tie-break needs at least two candidates")
	}

	resp := &tieBreakResp{}
	if err := c.httpPost(ctx, requestPath, &tieBreakReq{
		LeadID:     leadID,
		Candidates: candidates,
		Kind:       kind,
	}, resp); err != nil {
		return "", err
	}

	return resp.TxHash, nil
}

// PollFulfillment asks the coordinator whether the tie-break for the
// lead has been fulfilled on chain.
func (c *Client) PollFulfillment(ctx context.Context, leadID uint64) (*Fulfillment, error) {
	f := &Fulfillment{}
	url := fmt.Sprintf("%s/%s?lead_id=%d", c.endpoint, fulfillmentPath, leadID)
	return f, c.httpGet(ctx, url, f)
}

type oracleResponse struct {
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

	return c.do(req, result)
}

func (c *Client) httpGet(ctx context.Context, url string, result interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result interface{}) error {
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	or := &oracleResponse{}
	if err := json.Unmarshal(body, or); err != nil {
		return err
	}

	if or.Code != http.StatusOK {
		return fmt.Errorf("request vrf coordinator failed, err:%s", or.Msg)
	}

	return json.Unmarshal(or.Data, result)
}
