// Package newsletter provides a double-opt-in newsletter subscription library
// and standalone service for Go, covering the full subscriber lifecycle:
// subscribe, confirm, unsubscribe, and bounce-driven suppression.
//
// Works both as a library for embedding in your application AND as a
// standalone microservice with REST API.
//
// # Features
//
//   - Double Opt-In: subscribe creates a pending row and emails a one-time
//     confirmation link; only a confirmed click activates the address
//   - Hashed confirmation tokens: only the SHA-256 hash is stored, so a
//     database leak never exposes usable links
//   - Signed one-click unsubscribe links (HMAC-SHA256, no server state)
//   - Suppression via ESP webhooks (Postmark bounce / spam complaint /
//     subscription change events); suppressed addresses cannot re-subscribe
//   - Idempotent transitions: replayed clicks and webhook retries are safe
//   - Lazy schema migration: the subscriber table is created and upgraded
//     in place on first use, including legacy two-column deployments
//   - Domain-Driven Design with rich domain models containing business logic
//   - Repository Pattern for clean data access abstraction
//   - Options Pattern for modern Go API design
//   - Pluggable architecture: bring your own Logger and Mailer
//   - Multi-Database Support: MySQL, PostgreSQL, SQLite via Relica adapters
//   - Embedded Migrations for deployments that prefer up-front schema setup
//   - Cloud Native: 12-factor app, ENV config, health checks
//
// # Quick Start
//
// # Option 1: As Embedded Library
//
//	import (
//	    "database/sql"
//	    newsletter "github.com/coregx/newsletter"
//	    "github.com/coregx/newsletter/adapters/relica"
//	    _ "github.com/mattn/go-sqlite3"
//	)
//
//	db, _ := sql.Open("sqlite3", "newsletter.db")
//
//	repo := relica.NewSubscriberRepository(db, "sqlite3")
//	migrator := relica.NewSchemaMigrator(db, "sqlite3")
//	signer, _ := newsletter.NewSignedTokenCodec(os.Getenv("NEWSLETTER_TOKEN_SECRET"))
//
//	manager, _ := newsletter.NewLifecycleManager(
//	    newsletter.WithRepository(repo),
//	    newsletter.WithSchemaEnsurer(migrator),
//	    newsletter.WithMailer(mailer),
//	    newsletter.WithSigner(signer),
//	    newsletter.WithLifecycleLogger(logger),
//	)
//
// Apply lifecycle events:
//
//	// Subscribe: pending row + confirmation email
//	result, err := manager.Subscribe(ctx, "reader@example.com")
//
//	// Confirm: raw token from the clicked link
//	result, err = manager.Confirm(ctx, token)
//
//	// Unsubscribe: by email or by signed one-click token
//	result, err = manager.Unsubscribe(ctx, "reader@example.com")
//	result, err = manager.UnsubscribeByToken(ctx, signedToken)
//
//	// Suppression webhook payload → events → state
//	events, skipped, _ := newsletter.ExtractSuppressionEvents(body)
//	applied, err := manager.ProcessSuppressions(ctx, events)
//
// # Option 2: As Standalone Service
//
// Run the standalone newsletter server:
//
//	cd cmd/newsletter-server
//	NEWSLETTER_TOKEN_SECRET=... go run .
//
// Access REST API at http://localhost:8080:
//
//	# Subscribe
//	curl -X POST http://localhost:8080/api/v1/subscribe \
//	  -H "Content-Type: application/json" \
//	  -d '{"email":"reader@example.com"}'
//
//	# Health check
//	curl http://localhost:8080/api/v1/health
//
// # Lifecycle
//
// A subscriber is always in exactly one of four states:
//
//	pending       awaiting confirmation; holds a hashed one-time token
//	active        confirmed, receives newsletters
//	unsubscribed  opted out; may re-subscribe through the pending flow
//	suppressed    bounced or complained; terminal, subscribe is rejected
//
// Transitions are driven by four events: a subscribe request, a confirmation
// click, an unsubscribe request, and an inbound suppression webhook.
// Suppression wins over everything; a suppressed address stays suppressed
// regardless of later subscribe or confirm attempts.
//
// # Tokens
//
// Two token families secure the email links:
//
//   - Confirmation tokens are random one-time values. The raw token travels
//     only in the email link; the database stores its SHA-256 hash. Lookup is
//     by hash, and a successful confirm clears it, so links are single-use.
//   - Unsubscribe tokens are self-contained signed values
//     (base64url payload + "." + base64url HMAC-SHA256 signature) carrying
//     the email, a purpose, and an expiry. No server state is needed.
//
// # Database Schema
//
// The library requires a single subscribers table. It is created and kept up
// to date automatically by the lazy SchemaMigrator, including deployments
// that started from a legacy (id, email) table: missing columns are added
// and statuses are derived from the historical timestamps in place.
// Alternatively, apply the embedded migrations up front.
//
// Supports MySQL, PostgreSQL, and SQLite via Relica adapters.
// Table prefix can be customized (default: none).
//
// # Examples
//
// See the examples/ directory for complete working examples.
//
// For detailed documentation, see README.md and pkg.go.dev.
package newsletter
