package client

import (
	"net/url"
	"strings"
)

// Backend endpoints, relative to the API prefix.
const (
	EndpointSignIn       = "/public/auth/login"
	EndpointRefreshToken = "/public/auth/refresh-token"

	EndpointUsers          = "/private/users"
	EndpointAllUsers       = "/private/users/all"
	EndpointActivateUser   = "/private/users/:idUser/activer"
	EndpointDeactivateUser = "/private/users/:idUser/desactiver"
	EndpointRoles          = "/private/roles"
	EndpointFonctions      = "/private/fonctions"

	EndpointDemandes        = "/private/demandes"
	EndpointDemandesSent    = "/private/demandes/envoyees"
	EndpointDemandesRecues  = "/private/demandes/recues"
	EndpointDashboard       = "/private/demandes/dashboard"
	EndpointDemande         = "/private/demandes/:idDemande"
	EndpointDemandeDocument = "/private/demandes/:idDemande/document"
	EndpointSign            = "/api/demandes/:idDemande/signer"
	EndpointApprove         = "/api/demandes/:idDemande/approuver"
	EndpointRefuse          = "/api/demandes/:idDemande/refuser"

	EndpointSignedDocuments  = "/private/documents/demande/:demandeId/signed"
	EndpointDownloadDocument = "/private/documents/:documentId/download"
	EndpointArchive          = "/private/archives"
	EndpointArchiveStats     = "/private/archives/stats"
)

// expand fills the :param placeholders of an endpoint, in order, escaping each value.
func expand(endpoint string, params ...string) string {
	segments := strings.Split(endpoint, "/")
	i := 0
	for j, s := range segments {
		if strings.HasPrefix(s, ":") && i < len(params) {
			segments[j] = url.PathEscape(params[i])
			i++
		}
	}
	return strings.Join(segments, "/")
}
