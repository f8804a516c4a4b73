package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDemande_MultipartForm(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "contrat.pdf")
	annexe := filepath.Join(dir, "annexe.pdf")
	require.NoError(t, os.WriteFile(doc, []byte("%PDF-1.7 contrat"), 0o600))
	require.NoError(t, os.WriteFile(annexe, []byte("%PDF-1.7 annexe"), 0o600))

	a, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, EndpointDemandes, r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		v := r.MultipartForm.Value
		assert.Equal(t, []string{"Contrat de bail"}, v["titre"])
		assert.Equal(t, []string{"HAUTE"}, v["priority"])
		assert.Equal(t, []string{"2026-11-30T00:00:00Z"}, v["dateLimite"])
		assert.Equal(t, []string{"5"}, v["signataires[0]"])
		assert.Equal(t, []string{"8"}, v["signataires[1]"])
		assert.Equal(t, []string{"3"}, v["approbateurs[0]"])
		assert.NotContains(t, v, "description")
		assert.NotContains(t, v, "ampliateurs[0]")

		files := r.MultipartForm.File
		require.Len(t, files["file"], 1)
		assert.Equal(t, "contrat.pdf", files["file"][0].Filename)
		require.Len(t, files["fileAttachment"], 1)
		f, err := files["file"][0].Open()
		require.NoError(t, err)
		content, _ := io.ReadAll(f)
		_ = f.Close()
		assert.Equal(t, "%PDF-1.7 contrat", string(content))

		writeEnvelope(t, w, http.StatusCreated, map[string]any{"id": 77})
	}))

	created, err := a.CreateDemande(context.Background(), NewDemande{
		FilePath:     doc,
		Titre:        "Contrat de bail",
		Priority:     PriorityHigh,
		DateLimite:   time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC),
		Signataires:  []string{"5", "8"},
		Approbateurs: []string{"3"},
		Attachments:  []string{annexe},
	}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "77", created.ID.String())
}

func TestCreateDemande_MissingFile(t *testing.T) {
	a := New("http://127.0.0.1:0", nil, nil)
	_, err := a.CreateDemande(context.Background(), NewDemande{FilePath: filepath.Join(t.TempDir(), "absent.pdf"), Titre: "x"}, nil)
	assert.ErrorContains(t, err, "failed to open")
}

func TestRefuseDemande_SendsMotif(t *testing.T) {
	a, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/demandes/9/refuser", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "document incomplet", body["motif"])
		writeEnvelope(t, w, http.StatusOK, nil)
	}))
	require.NoError(t, a.RefuseDemande(context.Background(), "9", "document incomplet"))
}

func TestDemandeHelpers(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	ds := []Demande{
		{ID: "1", Status: StatusPendingSignature, IsCurrentUserSigner: true, DateLimite: &past},
		{ID: "2", Status: StatusPendingApproval, IsCurrentUserApprobateur: true},
		{ID: "3", Status: StatusSigned, IsCurrentUserSigner: true, DateLimite: &past},
		{ID: "4", Status: StatusPendingSignature},
	}

	assert.Len(t, FilterByStatus(ds, ""), 4)
	pending := FilterByStatus(ds, StatusPendingSignature)
	require.Len(t, pending, 2)
	assert.Equal(t, "1", pending[0].ID.String())

	actionable := Actionable(ds)
	require.Len(t, actionable, 2)
	assert.Equal(t, "2", actionable[1].ID.String())

	assert.True(t, ds[0].Late(now))
	assert.False(t, ds[2].Late(now))
	assert.False(t, ds[3].Late(now))
}

func TestDemande_CurrentSigner(t *testing.T) {
	d := Demande{
		Approbateurs: []Participant{{ID: "1", Prenom: "Awa", Nom: "Diop", HasSigned: true}},
		Signataires:  []Participant{{ID: "2", Name: "Moussa Ba", CurrentSigner: true}},
	}
	p, ok := d.CurrentSigner()
	require.True(t, ok)
	assert.Equal(t, "Moussa Ba", p.DisplayName())
	assert.Equal(t, "Awa Diop", d.Approbateurs[0].DisplayName())

	_, ok = Demande{}.CurrentSigner()
	assert.False(t, ok)
}

func TestStatusAndPriority(t *testing.T) {
	assert.Equal(t, "Signée", StatusSigned.Label())
	assert.Equal(t, "INCONNU", SignatureStatus("INCONNU").Label())
	assert.True(t, StatusRefused.Valid())
	assert.False(t, SignatureStatus("").Valid())

	for in, want := range map[string]Priority{"faible": PriorityLow, " Moyenne ": PriorityMedium, "urgente": PriorityHigh, "HAUTE": PriorityHigh} {
		got, ok := ParsePriority(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParsePriority("critique")
	assert.False(t, ok)
}
