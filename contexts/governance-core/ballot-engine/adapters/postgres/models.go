package postgresadapter

import (
	"time"

	"agora/contexts/governance-core/ballot-engine/domain/entities"
)

type registryModel struct {
	ID            int       `gorm:"column:id;primaryKey"`
	Authority     string    `gorm:"column:authority"`
	ActiveRoundID uint64    `gorm:"column:active_round_id"`
	TotalRounds   uint64    `gorm:"column:total_rounds"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (registryModel) TableName() string {
	return "ballot_registry"
}

type roundModel struct {
	ID          uint64    `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:name"`
	Phase       string    `gorm:"column:phase"`
	WinnerIndex uint64    `gorm:"column:winner_index"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (roundModel) TableName() string {
	return "ballot_rounds"
}

type proposalModel struct {
	RoundID   uint64 `gorm:"column:round_id;primaryKey"`
	Idx       uint64 `gorm:"column:idx;primaryKey"`
	Text      string `gorm:"column:text"`
	VoteCount uint64 `gorm:"column:vote_count"`
}

func (proposalModel) TableName() string {
	return "ballot_proposals"
}

type participantModel struct {
	RoundID       uint64     `gorm:"column:round_id;primaryKey"`
	Identity      string     `gorm:"column:identity;primaryKey"`
	Admitted      bool       `gorm:"column:admitted"`
	HasVoted      bool       `gorm:"column:has_voted"`
	VotedProposal uint64     `gorm:"column:voted_proposal"`
	AdmittedAt    time.Time  `gorm:"column:admitted_at"`
	VotedAt       *time.Time `gorm:"column:voted_at"`
}

func (participantModel) TableName() string {
	return "ballot_participants"
}

type outboxModel struct {
	OutboxID    string     `gorm:"column:outbox_id;primaryKey"`
	EventType   string     `gorm:"column:event_type"`
	Payload     []byte     `gorm:"column:payload"`
	Status      string     `gorm:"column:status"`
	RetryCount  int        `gorm:"column:retry_count"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "ballot_outbox"
}

// Models lists every gorm model of this adapter for platform AutoMigrate.
func Models() []any {
	return []any{
		&registryModel{},
		&roundModel{},
		&proposalModel{},
		&participantModel{},
		&outboxModel{},
	}
}

func participantModelFromEntity(participant entities.Participant) participantModel {
	return participantModel{
		RoundID:       participant.RoundID,
		Identity:      participant.Identity,
		Admitted:      participant.Admitted,
		HasVoted:      participant.HasVoted,
		VotedProposal: participant.VotedProposal,
		AdmittedAt:    participant.AdmittedAt,
		VotedAt:       participant.VotedAt,
	}
}

func (m participantModel) toEntity() entities.Participant {
	return entities.Participant{
		RoundID:       m.RoundID,
		Identity:      m.Identity,
		Admitted:      m.Admitted,
		HasVoted:      m.HasVoted,
		VotedProposal: m.VotedProposal,
		AdmittedAt:    m.AdmittedAt,
		VotedAt:       m.VotedAt,
	}
}
