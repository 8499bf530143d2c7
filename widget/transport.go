// Package widget is the embeddable support-chat client. A host program plays
// the role of the page embedding the script: it supplies a Store for durable
// visitor state and a Sink that displays rendered markup, and the Widget
// controller drives identity, conversation state and polling against the
// public function endpoint.
package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type rpcRequest struct {
	Path   string      `json:"path"`
	Args   interface{} `json:"args"`
	Format string      `json:"format"`
}

type rpcResponse struct {
	Status       string          `json:"status"`
	Value        json.RawMessage `json:"value"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

// Transport issues function calls against the backend. Every failure mode --
// network error, non-2xx status, undecodable envelope, application error --
// collapses to a nil result: the embed must degrade, never surface errors.
type Transport struct {
	endpoint string
	client   *http.Client
}

func NewTransport(endpoint string, client *http.Client) *Transport {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Transport{
		endpoint: endpoint,
		client:   client,
	}
}

func (t *Transport) InvokeQuery(ctx context.Context, name string, args interface{}) json.RawMessage {
	return t.invoke(ctx, name, args)
}

func (t *Transport) InvokeMutation(ctx context.Context, name string, args interface{}) json.RawMessage {
	return t.invoke(ctx, name, args)
}

func (t *Transport) invoke(ctx context.Context, name string, args interface{}) json.RawMessage {
	payload, err := json.Marshal(rpcRequest{
		Path:   name,
		Args:   args,
		Format: "json",
	})
	if err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := t.client.Do(req)
	if err != nil {
		return nil
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil
	}

	var envelope rpcResponse
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil
	}
	if envelope.Status != "success" {
		return nil
	}

	return envelope.Value
}
