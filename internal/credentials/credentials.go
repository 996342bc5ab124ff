// Package credentials loads Google Cloud service-account credential files.
package credentials

import (
	"context"
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// DatastoreScope is the OAuth scope Firestore writes require.
const DatastoreScope = "https://www.googleapis.com/auth/datastore"

// serviceAccountType is the only credentials file type accepted.
const serviceAccountType = "service_account"

// Credentials is a parsed service-account credentials file.
type Credentials struct {
	ProjectID string

	google *google.Credentials
}

type fileHeader struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
}

// Load reads the JSON credentials file at path.
func Load(ctx context.Context, path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading account credentials")
	}
	return Parse(ctx, data)
}

// Parse builds Credentials from the raw JSON of a credentials file.
func Parse(ctx context.Context, data []byte) (*Credentials, error) {
	var hdr fileHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, errors.Wrap(err, "decoding account credentials")
	}
	if hdr.Type != serviceAccountType {
		return nil, errors.Newf("account credentials must be a %s key, got type %q", serviceAccountType, hdr.Type)
	}
	if hdr.ProjectID == "" {
		return nil, errors.New("account credentials have no project_id")
	}

	gc, err := google.CredentialsFromJSON(ctx, data, DatastoreScope)
	if err != nil {
		return nil, errors.Wrap(err, "building google credentials")
	}

	return &Credentials{
		ProjectID: hdr.ProjectID,
		google:    gc,
	}, nil
}

// ClientOption returns the option that authenticates API clients with c.
func (c *Credentials) ClientOption() option.ClientOption {
	return option.WithCredentials(c.google)
}
