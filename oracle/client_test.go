package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/peterldowns/testy/check"
)

func coordinatorEnvelope(t *testing.T, w http.ResponseWriter, data interface{}) {
	raw, err := json.Marshal(data)
	check.Nil(t, err)
	resp := map[string]interface{}{
		"code": http.StatusOK,
		"data": json.RawMessage(raw),
	}
	check.Nil(t, json.NewEncoder(w).Encode(resp))
}

func TestConfigured(t *testing.T) {
	check.False(t, NewClient("").Configured())
	check.True(t, NewClient("http://vrf.local").Configured())

	var nilClient *Client
	check.False(t, nilClient.Configured())
}

func TestRequestTieBreak(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		check.Equal(t, http.MethodPost, r.Method)
		check.Equal(t, "/tie-break", r.URL.Path)

		req := &tieBreakReq{}
		check.Nil(t, json.NewDecoder(r.Body).Decode(req))
		check.Equal(t, uint64(42), req.LeadID)
		check.Equal(t, 2, len(req.Candidates))

		coordinatorEnvelope(t, w, &tieBreakResp{TxHash: "0xvrf"})
	}))
	defer srv.Close()

	txHash, err := NewClient(srv.URL).RequestTieBreak(
		context.Background(),
		42,
		[]string{"0xaaa", "0xbbb"},
		"auction_tie",
	)

	check.Nil(t, err)
	check.Equal(t, "0xvrf", txHash)
}

func TestRequestTieBreakRejectsSingleCandidate(t *testing.T) {
	_, err := NewClient("http://vrf.local").RequestTieBreak(
		context.Background(),
		42,
		[]string{"0xaaa"},
		"auction_tie",
	)
	check.Error(t, err)
}

func TestRequestTieBreakUnconfigured(t *testing.T) {
	_, err := NewClient("").RequestTieBreak(
		context.Background(),
		42,
		[]string{"0xaaa", "0xbbb"},
		"auction_tie",
	)
	check.Error(t, err)
}

func TestPollFulfillment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		check.Equal(t, "/fulfillment", r.URL.Path)
		check.Equal(t, "42", r.URL.Query().Get("lead_id"))

		coordinatorEnvelope(t, w, &Fulfillment{Fulfilled: true, Winner: "0xbbb"})
	}))
	defer srv.Close()

	f, err := NewClient(srv.URL).PollFulfillment(context.Background(), 42)

	check.Nil(t, err)
	check.True(t, f.Fulfilled)
	check.Equal(t, "0xbbb", f.Winner)
}
