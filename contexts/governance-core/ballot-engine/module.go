package ballotengine

import (
	"log/slog"
	"sync"

	httpadapter "agora/contexts/governance-core/ballot-engine/adapters/http"
	"agora/contexts/governance-core/ballot-engine/adapters/memory"
	"agora/contexts/governance-core/ballot-engine/application/commands"
	"agora/contexts/governance-core/ballot-engine/application/queries"
	"agora/contexts/governance-core/ballot-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Registry     ports.RegistryRepository
	Rounds       ports.RoundRepository
	Participants ports.ParticipantRepository
	Votes        ports.VoteWriter
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	Logger       *slog.Logger
}

func NewModule(deps Dependencies) Module {
	// One lock across both command use cases: every mutation in the session
	// is serialized, reads stay lock-free.
	writeLock := &sync.Mutex{}
	sessions := commands.SessionUseCase{
		Registry:     deps.Registry,
		Rounds:       deps.Rounds,
		Participants: deps.Participants,
		Outbox:       deps.Outbox,
		Clock:        deps.Clock,
		IDGen:        deps.IDGen,
		WriteLock:    writeLock,
		Logger:       deps.Logger,
	}
	ballots := commands.BallotUseCase{
		Registry:     deps.Registry,
		Rounds:       deps.Rounds,
		Participants: deps.Participants,
		Votes:        deps.Votes,
		Outbox:       deps.Outbox,
		Clock:        deps.Clock,
		IDGen:        deps.IDGen,
		WriteLock:    writeLock,
		Logger:       deps.Logger,
	}
	results := queries.ResultsUseCase{
		Registry:     deps.Registry,
		Rounds:       deps.Rounds,
		Participants: deps.Participants,
	}
	return Module{
		Handler: httpadapter.Handler{
			Sessions: sessions,
			Ballots:  ballots,
			Results:  results,
			Logger:   deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Registry:     store,
		Rounds:       store,
		Participants: store,
		Votes:        store,
		Outbox:       store,
		Clock:        store,
		IDGen:        store,
		Logger:       logger,
	})
	module.Store = store
	return module
}
