package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// NewDemande is the input of CreateDemande. Participants are user ids listed
// in the order they act.
type NewDemande struct {
	FilePath     string
	Titre        string
	Description  string
	Priority     Priority
	DateLimite   time.Time
	Signataires  []string
	Approbateurs []string
	Ampliateurs  []string
	Attachments  []string
}

// ListReceived returns the demandes addressed to the current user.
func (a *API) ListReceived(ctx context.Context) ([]Demande, error) {
	return getJSON[[]Demande](ctx, a, EndpointDemandesRecues, nil)
}

// ListSent returns the demandes created by the current user.
func (a *API) ListSent(ctx context.Context) ([]Demande, error) {
	return getJSON[[]Demande](ctx, a, EndpointDemandesSent, nil)
}

// GetDemande returns one demande.
func (a *API) GetDemande(ctx context.Context, id string) (Demande, error) {
	return getJSON[Demande](ctx, a, expand(EndpointDemande, id), nil)
}

// DemandeDocument returns the document attached to a demande.
func (a *API) DemandeDocument(ctx context.Context, id string) (Document, error) {
	return getJSON[Document](ctx, a, expand(EndpointDemandeDocument, id), nil)
}

// Dashboard returns the home page counters.
func (a *API) Dashboard(ctx context.Context) (Dashboard, error) {
	return getJSON[Dashboard](ctx, a, EndpointDashboard, nil)
}

// SignDemande signs a demande as the current user.
func (a *API) SignDemande(ctx context.Context, id string) error {
	_, err := postJSON[json.RawMessage](ctx, a, expand(EndpointSign, id), nil)
	return err
}

// ApproveDemande approves a demande as the current user.
func (a *API) ApproveDemande(ctx context.Context, id string) error {
	_, err := postJSON[json.RawMessage](ctx, a, expand(EndpointApprove, id), nil)
	return err
}

// RefuseDemande refuses a demande with an optional reason.
func (a *API) RefuseDemande(ctx context.Context, id, motif string) error {
	var body any
	if motif != "" {
		body = map[string]string{"motif": motif}
	}
	_, err := postJSON[json.RawMessage](ctx, a, expand(EndpointRefuse, id), body)
	return err
}

// CreateDemande uploads the document and creates the demande. Progress of the
// upload preparation is written to progress when it is not nil.
func (a *API) CreateDemande(ctx context.Context, d NewDemande, progress io.Writer) (CreatedDemande, error) {
	body, contentType, err := buildDemandeForm(d, progress)
	if err != nil {
		return CreatedDemande{}, err
	}
	log.Info().Str("titre", d.Titre).Int("bytes", len(body)).Msg("Creating demande")
	return call[CreatedDemande](ctx, a, request{
		method:      http.MethodPost,
		path:        EndpointDemandes,
		body:        body,
		contentType: contentType,
	})
}

// buildDemandeForm encodes d as multipart/form-data in memory so the request
// can be replayed after a token refresh.
func buildDemandeForm(d NewDemande, progress io.Writer) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	var dateLimite string
	if !d.DateLimite.IsZero() {
		dateLimite = d.DateLimite.Format(time.RFC3339)
	}
	fields := []struct{ name, value string }{
		{"titre", d.Titre},
		{"description", d.Description},
		{"priority", string(d.Priority)},
		{"dateLimite", dateLimite},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f.name, err)
		}
	}
	participants := []struct {
		name string
		ids  []string
	}{
		{"signataires", d.Signataires},
		{"approbateurs", d.Approbateurs},
		{"ampliateurs", d.Ampliateurs},
	}
	for _, p := range participants {
		if err := writeIndexed(w, p.name, p.ids); err != nil {
			return nil, "", err
		}
	}

	if err := attachFile(w, "file", d.FilePath, progress); err != nil {
		return nil, "", err
	}
	for _, p := range d.Attachments {
		if err := attachFile(w, "fileAttachment", p, progress); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// writeIndexed writes values as name[0], name[1], ...
func writeIndexed(w *multipart.Writer, name string, values []string) error {
	for i, v := range values {
		key := name + "[" + strconv.Itoa(i) + "]"
		if err := w.WriteField(key, v); err != nil {
			return fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}
	return nil
}

func attachFile(w *multipart.Writer, field, filePath string, progress io.Writer) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", filePath, err)
	}
	part, err := w.CreateFormFile(field, filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}

	var src io.Reader = f
	if progress != nil {
		bar := progressbar.NewOptions64(
			info.Size(),
			progressbar.OptionSetDescription(fmt.Sprintf("Uploading %s", filepath.Base(filePath))),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		defer func() { _ = bar.Finish() }()
		r := progressbar.NewReader(f, bar)
		src = &r
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return nil
}

// FilterByStatus keeps the demandes with the given status. An empty status keeps all.
func FilterByStatus(ds []Demande, status SignatureStatus) []Demande {
	if status == "" {
		return ds
	}
	out := make([]Demande, 0, len(ds))
	for _, d := range ds {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out
}

// Actionable keeps the demandes the current user can sign or approve now.
func Actionable(ds []Demande) []Demande {
	out := make([]Demande, 0, len(ds))
	for _, d := range ds {
		if d.CanSign() || d.CanApprove() {
			out = append(out, d)
		}
	}
	return out
}
