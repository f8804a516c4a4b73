package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/b13-niass/esign/db"
)

// NewUser is the input of CreateUser.
type NewUser struct {
	Prenom     string   `yaml:"prenom"`
	Nom        string   `yaml:"nom"`
	Email      string   `yaml:"email"`
	Password   string   `yaml:"password"`
	Telephone  string   `yaml:"telephone"`
	Photo      string   `yaml:"photo"`
	CNI        string   `yaml:"cni"`
	FonctionID int      `yaml:"fonctionId"`
	Roles      []string `yaml:"roles"`
	Active     *bool    `yaml:"active"`
}

// ListUsers returns users filtered by role and status. Empty filters are omitted.
func (a *API) ListUsers(ctx context.Context, role, status string) ([]User, error) {
	q := url.Values{}
	if role != "" {
		q.Set("role", role)
	}
	if status != "" {
		q.Set("status", status)
	}
	return getJSON[[]User](ctx, a, EndpointAllUsers, q)
}

// ActivateUser enables a user account.
func (a *API) ActivateUser(ctx context.Context, id string) error {
	_, err := getJSON[json.RawMessage](ctx, a, expand(EndpointActivateUser, id), nil)
	return err
}

// DeactivateUser disables a user account.
func (a *API) DeactivateUser(ctx context.Context, id string) error {
	_, err := getJSON[json.RawMessage](ctx, a, expand(EndpointDeactivateUser, id), nil)
	return err
}

// Roles returns the roles that can be given to users.
func (a *API) Roles(ctx context.Context) ([]db.Role, error) {
	return getJSON[[]db.Role](ctx, a, EndpointRoles, nil)
}

// Fonctions returns the organisational functions.
func (a *API) Fonctions(ctx context.Context) ([]Fonction, error) {
	return getJSON[[]Fonction](ctx, a, EndpointFonctions, nil)
}

// CreateUser creates a user account from a multipart form.
func (a *API) CreateUser(ctx context.Context, u NewUser) (User, error) {
	body, contentType, err := buildUserForm(u)
	if err != nil {
		return User{}, err
	}
	return call[User](ctx, a, request{
		method:      http.MethodPost,
		path:        EndpointUsers,
		body:        body,
		contentType: contentType,
	})
}

func buildUserForm(u NewUser) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"prenom", u.Prenom},
		{"nom", u.Nom},
		{"email", u.Email},
		{"password", u.Password},
		{"telephone", u.Telephone},
		{"cni", u.CNI},
		{"fonctionId", strconv.Itoa(u.FonctionID)},
		{"photo", u.Photo},
	}
	if u.Active != nil {
		fields = append(fields, struct{ name, value string }{"active", strconv.FormatBool(*u.Active)})
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f.name, err)
		}
	}
	if err := writeIndexed(w, "roles", u.Roles); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
