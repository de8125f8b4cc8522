package main

import (
	accesslogstore "acredita/internal/accesslog"
	accesslogmemory "acredita/internal/accesslog/store/memory"
	accesslogpostgres "acredita/internal/accesslog/store/postgres"
	eventstore "acredita/internal/event/store"
	eventmemory "acredita/internal/event/store/memory"
	eventpostgres "acredita/internal/event/store/postgres"
	identitystore "acredita/internal/identity/store"
	identitymemory "acredita/internal/identity/store/memory"
	identitypostgres "acredita/internal/identity/store/postgres"
	invitestore "acredita/internal/invite/store"
	invitememory "acredita/internal/invite/store/memory"
	invitepostgres "acredita/internal/invite/store/postgres"
	participantstore "acredita/internal/participant/store"
	participantmemory "acredita/internal/participant/store/memory"
	participantpostgres "acredita/internal/participant/store/postgres"
	"acredita/internal/platform/postgres"
)

// stores bundles every persistence interface behind one selection point:
// a configured DATABASE_URL picks PostgreSQL, otherwise everything runs on
// the in-memory implementations.
type stores struct {
	participants participantstore.Store
	events       eventstore.Store
	accessLog    accesslogstore.Store
	users        identitystore.Store
	invitations  invitestore.Store
}

func newMemoryStores() stores {
	return stores{
		participants: participantmemory.NewInMemory(),
		events:       eventmemory.NewInMemory(),
		accessLog:    accesslogmemory.NewInMemoryStore(),
		users:        identitymemory.NewInMemory(),
		invitations:  invitememory.NewInMemory(),
	}
}

func newPostgresStores(db *postgres.DB) stores {
	return stores{
		participants: participantpostgres.New(db.DB),
		events:       eventpostgres.New(db.DB),
		accessLog:    accesslogpostgres.New(db.DB),
		users:        identitypostgres.New(db.DB),
		invitations:  invitepostgres.New(db.DB),
	}
}
