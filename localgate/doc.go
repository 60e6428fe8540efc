// Package localgate is a self-hosted session gateway backed by bun and
// Redis. It implements the session.Gateway boundary: password and social
// sign-in, tagged sign-up outcomes with optional email verification, JWT
// access tokens with a revocable session registry, and session-changed
// push events.
package localgate
