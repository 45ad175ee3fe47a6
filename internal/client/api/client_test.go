package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashcards/internal/client/events"
	"flashcards/pkg/protocol"
)

type staticTokens string

func (s staticTokens) Get() (string, bool) { return string(s), s != "" }

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth, gotCT string
	var gotBody protocol.CreateDeckRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(protocol.Deck{ID: "d1", Name: gotBody.Name})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", staticTokens("tok-1"))
	var out protocol.Deck
	err := c.Post(context.Background(), "/decks", protocol.CreateDeckRequest{Name: "Go"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, "Go", gotBody.Name)
	assert.Equal(t, "d1", out.ID)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var hadAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	var out []protocol.Deck
	require.NoError(t, NewClient(srv.URL, staticTokens("")).Get(context.Background(), "/decks", &out))
	assert.False(t, hadAuth)

	require.NoError(t, NewClient(srv.URL, nil).Get(context.Background(), "/decks", &out))
	assert.False(t, hadAuth)
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(protocol.ErrorResponse{Message: "Invalid credentials"})
	}))
	defer srv.Close()

	err := NewClient(srv.URL, nil).Post(context.Background(), "/auth/login", protocol.LoginRequest{}, &protocol.AuthResponse{})

	var se *HTTPStatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.Equal(t, "Invalid credentials", se.Message)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsNotFound(err))
	assert.Contains(t, string(se.Body), "Invalid credentials")
}

func TestClient_StatusErrorFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"conflict","errors":{"email":"already registered"}}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, nil).Post(context.Background(), "/auth/register", struct{}{}, nil)
	var se *HTTPStatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "already registered", se.Fields["email"])
	assert.Equal(t, http.StatusConflict, StatusCode(err))
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, nil).Get(context.Background(), "/decks", &[]protocol.Deck{})
	var se *HTTPStatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.Empty(t, se.Message)
	assert.Contains(t, se.Error(), "502")
}

func TestClient_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	var out []protocol.Deck
	err := NewClient(srv.URL, nil).Get(context.Background(), "/decks", &out)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "[]protocol.Deck", de.Target)
	assert.True(t, IsDecodeError(err))
}

func TestClient_EmptyBodyWhenEntityExpected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, nil).Get(context.Background(), "/decks/1", &protocol.Deck{})
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestClient_DeleteIgnoresBody(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL, nil).Delete(context.Background(), "/decks/1"))
	assert.Equal(t, http.MethodDelete, method)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url, nil).Get(context.Background(), "/decks", &[]protocol.Deck{})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.MethodGet, te.Method)
	assert.True(t, IsTransportError(err))
	assert.Equal(t, 0, StatusCode(err))
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewClient(srv.URL, nil).Get(ctx, "/decks", &[]protocol.Deck{})
	assert.True(t, IsTransportError(err))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_PublishesRequestEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	bus := events.NewBus()
	ch := bus.Subscribe()
	c := NewClient(srv.URL, nil, WithEventBus(bus), WithTimeout(time.Second))

	require.NoError(t, c.Get(context.Background(), "/decks", &[]protocol.Deck{}))

	start := <-ch
	done := <-ch
	assert.Equal(t, events.EventRequestStart, start.Type)
	require.Equal(t, events.EventRequestComplete, done.Type)
	data := done.Data.(events.RequestData)
	assert.Equal(t, http.StatusOK, data.Status)
	assert.Equal(t, "/decks", data.Path)
	assert.Equal(t, int64(2), data.Bytes)
}
