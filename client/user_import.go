package client

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// UserImportTemplate is the YAML template for bulk user import.
const UserImportTemplate = `# Modèle d'importation d'utilisateurs
# Vous pouvez ajouter autant d'utilisateurs que nécessaire en suivant ce format

utilisateurs:
  - prenom: Jean # requis
    nom: Dupont # requis
    email: jean.dupont@example.com
    password: MotDePasse123 # requis
    telephone: "0123456789"
    photo: "" # Base64 ou URL
    cni: "1234567890"
    fonctionId: 1 # ID de la fonction (integer)
    roles: # requis, au moins un rôle
      - ADMIN
      - USER

  - prenom: Marie # requis
    nom: Martin # requis
    email: marie.martin@example.com
    password: MotDePasse456 # requis
    telephone: "0987654321"
    photo: "" # Base64 ou URL
    cni: "0987654321"
    fonctionId: 2 # ID de la fonction (integer)
    roles: # requis, au moins un rôle
      - USER
`

type userImportFile struct {
	Utilisateurs []NewUser `yaml:"utilisateurs"`
}

// ParseUserImport reads a user import file and checks the required fields of
// every entry. Errors name the entry by its 1-based position.
func ParseUserImport(r io.Reader) ([]NewUser, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	var f userImportFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("import file is empty")
		}
		return nil, fmt.Errorf("failed to parse import file: %w", err)
	}
	if len(f.Utilisateurs) == 0 {
		return nil, fmt.Errorf("import file has no entries under 'utilisateurs'")
	}

	for i, u := range f.Utilisateurs {
		var missing []string
		if strings.TrimSpace(u.Prenom) == "" {
			missing = append(missing, "prenom")
		}
		if strings.TrimSpace(u.Nom) == "" {
			missing = append(missing, "nom")
		}
		if u.Password == "" {
			missing = append(missing, "password")
		}
		if len(u.Roles) == 0 {
			missing = append(missing, "roles")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("entry %d: missing required fields: %s", i+1, strings.Join(missing, ", "))
		}
	}
	return f.Utilisateurs, nil
}
