package services

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// IdentityProvider is the admin-side surface of the external auth
// provider. Wipe uses it to delete the upstream account so the directory
// and the provider stay consistent.
type IdentityProvider interface {
	DeleteAccount(ctx context.Context, subjectID string) error
}

// FirebaseIdentityProvider deletes accounts through the Firebase Admin SDK.
type FirebaseIdentityProvider struct {
	client *fbauth.Client
}

func NewFirebaseIdentityProvider(ctx context.Context, projectID, credentialsJSON string) (*FirebaseIdentityProvider, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("identity provider: firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity provider: auth client: %w", err)
	}
	return &FirebaseIdentityProvider{client: client}, nil
}

func (p *FirebaseIdentityProvider) DeleteAccount(ctx context.Context, subjectID string) error {
	if err := p.client.DeleteUser(ctx, subjectID); err != nil {
		return fmt.Errorf("identity provider: delete %s: %w", subjectID, err)
	}
	return nil
}

// NoopIdentityProvider backs dev mode, where there is no upstream account.
type NoopIdentityProvider struct{}

func (NoopIdentityProvider) DeleteAccount(ctx context.Context, subjectID string) error {
	return nil
}
