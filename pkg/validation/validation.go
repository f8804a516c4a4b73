package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/b13-niass/esign/client"
)

const (
	MinThreads = 1
	MaxThreads = 20
)

func ValidateThreadCount(threads int) error {
	if threads < MinThreads || threads > MaxThreads {
		return fmt.Errorf("thread count must be between %d and %d, got %d", MinThreads, MaxThreads, threads)
	}
	return nil
}

func ValidateNonEmptyString(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address: %s", email)
	}
	return nil
}

// ValidatePriority parses a priority as typed on the command line.
func ValidatePriority(p string) (client.Priority, error) {
	priority, ok := client.ParsePriority(p)
	if !ok {
		names := make([]string, len(client.Priorities))
		for i, pr := range client.Priorities {
			names[i] = strings.ToLower(string(pr))
		}
		return "", fmt.Errorf("invalid priority: %s (must be one of: %s)", p, strings.Join(names, ", "))
	}
	return priority, nil
}

// ValidateStatus parses a status filter. An empty value means no filter.
func ValidateStatus(s string) (client.SignatureStatus, error) {
	if s == "" {
		return "", nil
	}
	status := client.SignatureStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		names := make([]string, len(client.Statuses))
		for i, st := range client.Statuses {
			names[i] = string(st)
		}
		return "", fmt.Errorf("invalid status: %s (must be one of: %s)", s, strings.Join(names, ", "))
	}
	return status, nil
}

// ValidateDemande checks a demande before it is uploaded and reports every
// problem found.
func ValidateDemande(d client.NewDemande, now time.Time) error {
	var errs []error
	if d.FilePath == "" {
		errs = append(errs, errors.New("a document is required"))
	} else if info, err := os.Stat(d.FilePath); err != nil {
		errs = append(errs, fmt.Errorf("document %s is not readable: %w", d.FilePath, err))
	} else if info.IsDir() {
		errs = append(errs, fmt.Errorf("document %s is a directory", d.FilePath))
	}
	if err := ValidateNonEmptyString("titre", d.Titre); err != nil {
		errs = append(errs, err)
	}
	if len(d.Signataires) == 0 {
		errs = append(errs, errors.New("at least one signataire is required"))
	}
	if d.Priority != "" {
		if _, err := ValidatePriority(string(d.Priority)); err != nil {
			errs = append(errs, err)
		}
	}
	if !d.DateLimite.IsZero() && !d.DateLimite.After(now) {
		errs = append(errs, fmt.Errorf("date limite %s is not in the future", d.DateLimite.Format("2006-01-02")))
	}
	for _, p := range d.Attachments {
		if _, err := os.Stat(p); err != nil {
			errs = append(errs, fmt.Errorf("attachment %s is not readable: %w", p, err))
		}
	}
	return errors.Join(errs...)
}
