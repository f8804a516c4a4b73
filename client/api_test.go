package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/b13-niass/esign/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_DecodesEnvelope(t *testing.T) {
	a, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, EndpointDashboard, r.URL.Path)
		writeEnvelope(t, w, http.StatusOK, map[string]int{"signed": 4, "pending": 2, "late": 1, "totalUsers": 9})
	}))

	d, err := a.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Dashboard{Signed: 4, Pending: 2, Late: 1, TotalUsers: 9}, d)
}

func TestCall_EnvelopeStatusNotOK(t *testing.T) {
	a, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusOK, "demande introuvable")
	}))

	_, err := a.GetDemande(context.Background(), "7")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "KO", apiErr.Status)
	assert.Equal(t, "demande introuvable", apiErr.Message)
	assert.Contains(t, err.Error(), "demande introuvable")
}

func TestCall_HTTPErrorCarriesMessage(t *testing.T) {
	a, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "not here")
	}))

	_, err := a.GetDemande(context.Background(), "7")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, errors.Is(err, auth.ErrAuthExpired))
}

func TestCall_PlainTextError(t *testing.T) {
	a, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway config", http.StatusBadRequest)
	}))

	_, err := a.ListSent(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "bad gateway config", apiErr.Message)
}

func TestAPIError_UnwrapsAuthExpired(t *testing.T) {
	for _, code := range []int{401, 419, 440} {
		err := error(&APIError{StatusCode: code})
		assert.ErrorIs(t, err, auth.ErrAuthExpired, "status %d", code)
	}
	assert.NotErrorIs(t, &APIError{StatusCode: 403}, auth.ErrAuthExpired)
	assert.Contains(t, (&APIError{StatusCode: 403}).Error(), "Forbidden")
}

func TestSendRequest_RetriesGetOn500(t *testing.T) {
	var attempts atomic.Int32
	a, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		writeEnvelope(t, w, http.StatusOK, []Demande{{ID: "1", Titre: "Contrat"}})
	}))

	ds, err := a.ListReceived(context.Background())
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "Contrat", ds[0].Titre)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestSendRequest_GivesUpAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	a, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))

	_, err := a.ListReceived(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, int32(defaultMaxRetries), attempts.Load())
}

func TestSendRequest_DoesNotRetryPost(t *testing.T) {
	var attempts atomic.Int32
	a, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	err := a.SignDemande(context.Background(), "3")
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestSendRequest_StopsOnCancelledContext(t *testing.T) {
	a, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.ListReceived(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCall_EmptyBody(t *testing.T) {
	a, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	require.NoError(t, a.ApproveDemande(context.Background(), "3"))
}

func TestSeconds_UnmarshalJSON(t *testing.T) {
	cases := map[string]Seconds{`3600`: 3600, `"900"`: 900, `null`: 0, `""`: 0}
	for in, want := range cases {
		var s Seconds
		require.NoError(t, json.Unmarshal([]byte(in), &s), in)
		assert.Equal(t, want, s, in)
	}
	var s Seconds
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &s))
}

func TestEndpointHelpers(t *testing.T) {
	assert.Equal(t, "/api/demandes/42/signer", expand(EndpointSign, "42"))
	assert.Equal(t, "/private/users/a%2Fb/activer", expand(EndpointActivateUser, "a/b"))
	assert.Equal(t, EndpointRoles, expand(EndpointRoles, "unused"))

	a := New("https://esign.test/api/", nil, nil)
	assert.Equal(t, "https://esign.test/api/private/roles", a.endpoint(EndpointRoles, nil))
	assert.Equal(t, "https://cdn.test/f.pdf", a.endpoint("https://cdn.test/f.pdf", nil))
	assert.True(t, isAbsoluteURL("https://example.com/file"))
	assert.False(t, isAbsoluteURL("/relative/path"))
}
