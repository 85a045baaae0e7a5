package auth

import "errors"

var (
	// ErrConfiguration means the provider could not be discovered or is
	// misconfigured. Fatal for the request.
	ErrConfiguration = errors.New("auth: provider configuration unavailable")

	// ErrAuthExchange covers state/nonce mismatch, a provider-reported error,
	// a rejected code and transport failures during the exchange.
	ErrAuthExchange = errors.New("auth: authorization code exchange failed")

	// ErrMalformedIdentity means no usable identity (or no email) could be
	// extracted from the token response.
	ErrMalformedIdentity = errors.New("auth: malformed identity")

	// ErrPersistence wraps storage failures during account resolution.
	ErrPersistence = errors.New("auth: persistence failure")

	// ErrDuplicateAccount is the creation race between two concurrent
	// callbacks. The resolver recovers from it; callers never see it.
	ErrDuplicateAccount = errors.New("auth: duplicate account")

	// ErrUnauthenticated means the request carries no valid session.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
)
