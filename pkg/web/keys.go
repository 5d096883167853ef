package web

import "context"

type credentialKey struct{}

// WithCredential stores the caller's Authorization header value in the context.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialKey{}, credential)
}

// GetCredential retrieves the caller's Authorization header value from the context.
// Returns the credential and a boolean indicating whether it was found.
func GetCredential(ctx context.Context) (string, bool) {
	credential, ok := ctx.Value(credentialKey{}).(string)
	return credential, ok
}
