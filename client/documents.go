package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

var unsafeChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// SanitizePath turns a document name into a safe file name.
func SanitizePath(name string) string {
	replacements := []struct {
		old string
		new string
	}{
		{"®", ""}, {":", ""}, {" ", "-"}, {"(", ""}, {")", ""}, {"™", ""},
		{"é", "e"}, {"è", "e"}, {"ê", "e"}, {"à", "a"}, {"ç", "c"}, {"ô", "o"},
	}
	name = strings.ToLower(strings.TrimSpace(name))
	for _, r := range replacements {
		name = strings.ReplaceAll(name, r.old, r.new)
	}
	name = unsafeChars.ReplaceAllString(name, "-")
	return strings.Trim(name, "-.")
}

// SignedDocuments lists the signed documents of a demande.
func (a *API) SignedDocuments(ctx context.Context, demandeID string) ([]Document, error) {
	return getJSON[[]Document](ctx, a, expand(EndpointSignedDocuments, demandeID), nil)
}

// documentSource returns the request that fetches the bytes of doc. Cloud
// documents carry a pre-signed URL and are fetched without credentials.
func (a *API) documentSource(doc Document) request {
	if doc.IsCloudDocument && isAbsoluteURL(doc.URL) {
		return request{method: http.MethodGet, path: doc.URL, accept: "*/*", public: true}
	}
	return request{method: http.MethodGet, path: expand(EndpointDownloadDocument, string(doc.ID)), accept: "*/*"}
}

// FileName is the file name doc is saved under.
func FileName(doc Document) string {
	if name := SanitizePath(doc.Nom); name != "" {
		return name
	}
	return "document-" + string(doc.ID)
}

// FileNames returns a distinct file name for each of docs, in order. Names
// that collide once sanitized get a numeric suffix before the extension.
func FileNames(docs []Document) []string {
	names := make([]string, len(docs))
	seen := make(map[string]bool, len(docs))
	for i, doc := range docs {
		name := FileName(doc)
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		for n := 2; seen[name]; n++ {
			name = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

// DownloadDocument saves doc into dir under FileName(doc) and returns the
// file path.
func (a *API) DownloadDocument(ctx context.Context, doc Document, dir string, progress io.Writer) (string, error) {
	return a.DownloadDocumentAs(ctx, doc, dir, FileName(doc), progress)
}

// DownloadDocumentAs saves doc into dir as name and returns the file path.
// The body is read through the download rate limiter; progress is written to
// progress when it is not nil.
func (a *API) DownloadDocumentAs(ctx context.Context, doc Document, dir, name string, progress io.Writer) (string, error) {
	if err := ensureDirExists(dir); err != nil {
		return "", err
	}
	filePath := filepath.Join(dir, name)

	resp, err := a.sendRequest(ctx, a.documentSource(doc))
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", doc.Nom, err)
	}
	defer closeResponseBody(resp)

	tmp, err := os.CreateTemp(dir, "."+name+".*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	var src io.Reader = wrapWithDownloadLimiter(ctx, resp.Body)
	var bar *progressbar.ProgressBar
	if progress != nil {
		bar = progressbar.NewOptions64(
			resp.ContentLength,
			progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", name)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionThrottle(500*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionShowCount(),
		)
		r := progressbar.NewReader(src, bar)
		src = &r
	}

	buffer := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(tmp, src, buffer); err != nil {
		cleanup()
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Error().Err(err).Str("file", filePath).Msg("Failed to save document")
		return "", fmt.Errorf("failed to save %s: %w", filePath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close %s: %w", filePath, err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move %s into place: %w", filePath, err)
	}
	if bar != nil {
		_ = bar.Finish()
	}
	log.Info().Str("file", filePath).Msg("Document downloaded")
	return filePath, nil
}

func ensureDirExists(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path %s exists but is not a directory", path)
		}
		return nil
	}
	if os.IsNotExist(err) {
		log.Info().Msgf("Creating directory: %s", path)
		return os.MkdirAll(path, 0o750)
	}
	return err
}
