package client

import "context"

// ArchiveDocuments archives every signed document not archived yet.
func (a *API) ArchiveDocuments(ctx context.Context) (ArchiveResult, error) {
	return postJSON[ArchiveResult](ctx, a, EndpointArchive, nil)
}

// ArchiveStats returns the signed and archived document counts.
func (a *API) ArchiveStats(ctx context.Context) (ArchiveStats, error) {
	return getJSON[ArchiveStats](ctx, a, EndpointArchiveStats, nil)
}
