package network_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cul-it/cular/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketClientPost(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			json.Unmarshal(body, &received)
			w.WriteHeader(http.StatusCreated)
		}))
	defer server.Close()

	client := network.NewTicketClient(server.URL)
	err := client.Post("Fixity failure for job-1", "file a.txt disagrees")
	require.Nil(t, err)
	assert.Equal(t, "Fixity failure for job-1", received["subject"])
	assert.Equal(t, "file a.txt disagrees", received["body"])
}

func TestTicketClientPostErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
	defer server.Close()

	client := network.NewTicketClient(server.URL)
	err := client.Post("subject", "body")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "500")

	client = network.NewTicketClient("http://127.0.0.1:1")
	assert.NotNil(t, client.Post("subject", "body"))
}
