package client

import (
	"strings"
	"time"

	"github.com/b13-niass/esign/db"
)

// SignatureStatus is the workflow status of a demande.
type SignatureStatus string

const (
	StatusPendingApproval  SignatureStatus = "EN_ATTENTE_APPROBATION"
	StatusApproved         SignatureStatus = "APPROUVEE"
	StatusPendingSignature SignatureStatus = "EN_ATTENTE_SIGNATURE"
	StatusSigned           SignatureStatus = "SIGNEE"
	StatusRefused          SignatureStatus = "REFUSEE"
	StatusCancelled        SignatureStatus = "ANNULEE"
)

// Statuses lists every known status in workflow order.
var Statuses = []SignatureStatus{
	StatusPendingApproval, StatusApproved, StatusPendingSignature,
	StatusSigned, StatusRefused, StatusCancelled,
}

var statusLabels = map[SignatureStatus]string{
	StatusPendingApproval:  "En attente d'approbation",
	StatusApproved:         "Approuvée",
	StatusPendingSignature: "En attente de signature",
	StatusSigned:           "Signée",
	StatusRefused:          "Refusée",
	StatusCancelled:        "Annulée",
}

// Label returns the French display label, or the raw value for unknown statuses.
func (s SignatureStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Valid reports whether s is a known status.
func (s SignatureStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Priority of a demande.
type Priority string

const (
	PriorityLow    Priority = "FAIBLE"
	PriorityMedium Priority = "MOYENNE"
	PriorityHigh   Priority = "HAUTE"
)

// Priorities lists the accepted priorities.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority accepts any case and the "urgente" spelling used by the creation form.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FAIBLE":
		return PriorityLow, true
	case "MOYENNE":
		return PriorityMedium, true
	case "HAUTE", "URGENTE":
		return PriorityHigh, true
	}
	return "", false
}

// Participant is a signataire, approbateur or ampliateur of a demande.
type Participant struct {
	ID            db.ID  `json:"id"`
	Name          string `json:"name,omitempty"`
	Nom           string `json:"nom,omitempty"`
	Prenom        string `json:"prenom,omitempty"`
	Email         string `json:"email,omitempty"`
	Ordre         int    `json:"ordre"`
	Action        string `json:"action,omitempty"`
	HasSigned     bool   `json:"hasSigned"`
	CurrentSigner bool   `json:"currentSigner"`
}

// DisplayName returns the name the backend sent, or "Prenom Nom".
func (p Participant) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return strings.TrimSpace(p.Prenom + " " + p.Nom)
}

// Demande is a signature request.
type Demande struct {
	ID                       db.ID           `json:"id"`
	Titre                    string          `json:"titre"`
	Description              string          `json:"description,omitempty"`
	Status                   SignatureStatus `json:"status"`
	Priority                 Priority        `json:"priority"`
	DateCreated              *time.Time      `json:"dateCreated,omitempty"`
	DateLimite               *time.Time      `json:"dateLimite,omitempty"`
	Signataires              []Participant   `json:"signataires,omitempty"`
	Approbateurs             []Participant   `json:"approbateurs,omitempty"`
	Ampliateurs              []Participant   `json:"ampliateurs,omitempty"`
	IsCurrentUserSigner      bool            `json:"isCurrentUserSigner"`
	IsCurrentUserApprobateur bool            `json:"isCurrentUserApprobateur"`
}

// CanSign reports whether the current user is expected to sign now.
func (d Demande) CanSign() bool {
	return d.IsCurrentUserSigner && d.Status == StatusPendingSignature
}

// CanApprove reports whether the current user is expected to approve now.
func (d Demande) CanApprove() bool {
	return d.IsCurrentUserApprobateur && d.Status == StatusPendingApproval
}

// CurrentSigner returns the participant whose turn it is, if any.
func (d Demande) CurrentSigner() (Participant, bool) {
	for _, group := range [][]Participant{d.Approbateurs, d.Signataires} {
		for _, p := range group {
			if p.CurrentSigner {
				return p, true
			}
		}
	}
	return Participant{}, false
}

// Late reports whether the deadline has passed on an unfinished demande.
func (d Demande) Late(now time.Time) bool {
	if d.DateLimite == nil {
		return false
	}
	switch d.Status {
	case StatusSigned, StatusRefused, StatusCancelled:
		return false
	}
	return d.DateLimite.Before(now)
}

// Dashboard holds the counters shown on the home page.
type Dashboard struct {
	Signed     int `json:"signed"`
	Pending    int `json:"pending"`
	Late       int `json:"late"`
	TotalUsers int `json:"totalUsers"`
}

// CreatedDemande is the response to a demande creation.
type CreatedDemande struct {
	ID db.ID `json:"id"`
}

// User is a user as listed by the administration endpoints.
type User struct {
	db.UserProfile
	Active *bool `json:"active,omitempty"`
}

// Fonction is an organisational function a user holds.
type Fonction struct {
	ID       db.ID  `json:"id"`
	Libelle  string `json:"libelle"`
	Acronyme string `json:"acronyme"`
}

// Document is a signed document available for download.
type Document struct {
	ID              db.ID  `json:"id"`
	Nom             string `json:"nom"`
	URL             string `json:"url"`
	ContentType     string `json:"contentType"`
	IsCloudDocument bool   `json:"isCloudDocument"`
}

// ArchiveResult is the outcome of an archive run.
type ArchiveResult struct {
	TotalDocuments       int      `json:"totalDocuments"`
	SuccessfullyArchived []string `json:"successfullyArchived"`
	FailedToArchive      []string `json:"failedToArchive"`
}

// ArchiveStats counts signed and archived documents.
type ArchiveStats struct {
	SignedDocuments   int `json:"signedDocuments"`
	ArchivedDocuments int `json:"archivedDocuments"`
}
