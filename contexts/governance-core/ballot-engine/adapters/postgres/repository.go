package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"agora/contexts/governance-core/ballot-engine/domain/entities"
	domainerrors "agora/contexts/governance-core/ballot-engine/domain/errors"
	"agora/contexts/governance-core/ballot-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	registryRowID = 1

	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository is the gorm-backed implementation of every ballot-engine port
// that persists state.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) GetRegistry(ctx context.Context) (entities.Registry, bool, error) {
	var row registryModel
	err := r.db.WithContext(ctx).
		Where("id = ?", registryRowID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Registry{}, false, nil
		}
		return entities.Registry{}, false, r.logError("ballot_repo_get_registry_failed", err)
	}
	return entities.Registry{
		Authority:     row.Authority,
		ActiveRoundID: row.ActiveRoundID,
		TotalRounds:   row.TotalRounds,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, true, nil
}

func (r *Repository) SaveRegistry(ctx context.Context, registry entities.Registry) error {
	row := registryModel{
		ID:            registryRowID,
		Authority:     strings.TrimSpace(registry.Authority),
		ActiveRoundID: registry.ActiveRoundID,
		TotalRounds:   registry.TotalRounds,
		CreatedAt:     registry.CreatedAt,
		UpdatedAt:     registry.UpdatedAt,
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"authority":       row.Authority,
			"active_round_id": row.ActiveRoundID,
			"total_rounds":    row.TotalRounds,
			"updated_at":      row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("ballot_repo_save_registry_failed", create.Error)
	}
	return nil
}

func (r *Repository) GetRound(ctx context.Context, roundID uint64) (entities.Round, error) {
	var row roundModel
	err := r.db.WithContext(ctx).
		Where("id = ?", roundID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Round{}, domainerrors.ErrRoundNotFound
		}
		return entities.Round{}, r.logError("ballot_repo_get_round_failed", err, "round_id", roundID)
	}

	var proposalRows []proposalModel
	if err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("idx ASC").
		Find(&proposalRows).Error; err != nil {
		return entities.Round{}, r.logError("ballot_repo_get_proposals_failed", err, "round_id", roundID)
	}

	round := entities.Round{
		RoundID:     row.ID,
		Name:        row.Name,
		Phase:       entities.Phase(row.Phase),
		WinnerIndex: row.WinnerIndex,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	for _, proposalRow := range proposalRows {
		round.Proposals = append(round.Proposals, entities.Proposal{
			Index:     proposalRow.Idx,
			Text:      proposalRow.Text,
			VoteCount: proposalRow.VoteCount,
		})
	}
	return round, nil
}

// SaveRound upserts the round row and its full proposal sequence in one
// transaction; proposals are append-only and counts only grow, so updating
// every row is safe.
func (r *Repository) SaveRound(ctx context.Context, round entities.Round) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertRound(tx, round)
	})
	if err != nil {
		return r.logError("ballot_repo_save_round_failed", err, "round_id", round.RoundID)
	}
	return nil
}

func upsertRound(tx *gorm.DB, round entities.Round) error {
	row := roundModel{
		ID:          round.RoundID,
		Name:        round.Name,
		Phase:       string(round.Phase),
		WinnerIndex: round.WinnerIndex,
		CreatedAt:   round.CreatedAt,
		UpdatedAt:   round.UpdatedAt,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name":         row.Name,
			"phase":        row.Phase,
			"winner_index": row.WinnerIndex,
			"updated_at":   row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return err
	}
	for _, proposal := range round.Proposals {
		proposalRow := proposalModel{
			RoundID:   round.RoundID,
			Idx:       proposal.Index,
			Text:      proposal.Text,
			VoteCount: proposal.VoteCount,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "round_id"}, {Name: "idx"}},
			DoUpdates: clause.Assignments(map[string]any{
				"text":       proposalRow.Text,
				"vote_count": proposalRow.VoteCount,
			}),
		}).Create(&proposalRow).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) GetParticipant(ctx context.Context, roundID uint64, identity string) (entities.Participant, bool, error) {
	var row participantModel
	err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Where("identity = ?", strings.TrimSpace(identity)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Participant{}, false, nil
		}
		return entities.Participant{}, false, r.logError("ballot_repo_get_participant_failed", err,
			"round_id", roundID,
			"identity", strings.TrimSpace(identity),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveParticipant(ctx context.Context, participant entities.Participant) error {
	if err := upsertParticipant(r.db.WithContext(ctx), participant); err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyAdmitted
		}
		return r.logError("ballot_repo_save_participant_failed", err,
			"round_id", participant.RoundID,
			"identity", strings.TrimSpace(participant.Identity),
		)
	}
	return nil
}

func upsertParticipant(tx *gorm.DB, participant entities.Participant) error {
	row := participantModelFromEntity(participant)
	row.Identity = strings.TrimSpace(row.Identity)
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "round_id"}, {Name: "identity"}},
		DoUpdates: clause.Assignments(map[string]any{
			"admitted":       row.Admitted,
			"has_voted":      row.HasVoted,
			"voted_proposal": row.VotedProposal,
			"voted_at":       row.VotedAt,
		}),
	}).Create(&row).Error
}

// SaveVote writes the round's counts and the participant's voted state in a
// single transaction so a failure leaves neither side applied.
func (r *Repository) SaveVote(ctx context.Context, round entities.Round, participant entities.Participant) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertRound(tx, round); err != nil {
			return err
		}
		return upsertParticipant(tx, participant)
	})
	if err != nil {
		return r.logError("ballot_repo_save_vote_failed", err,
			"round_id", round.RoundID,
			"identity", strings.TrimSpace(participant.Identity),
		)
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:  strings.TrimSpace(envelope.EventID),
		EventType: strings.TrimSpace(envelope.EventType),
		Payload:   payload,
		Status:    outboxStatusPending,
		CreatedAt: envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("ballot_repo_append_outbox_failed", create.Error, "outbox_id", row.OutboxID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:    row.OutboxID,
			EventType:   row.EventType,
			Payload:     append([]byte(nil), row.Payload...),
			Status:      row.Status,
			RetryCount:  row.RetryCount,
			CreatedAt:   row.CreatedAt.UTC(),
			PublishedAt: row.PublishedAt,
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	update := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if update.Error != nil {
		return r.logError("ballot_repo_mark_outbox_published_failed", update.Error, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "governance-core/ballot-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("ballot repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
