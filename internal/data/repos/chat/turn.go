package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

type ConversationTurnRepo interface {
	Create(dbc dbctx.Context, row *types.ConversationTurn) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ConversationTurn, error)
	// ListRecent returns up to limit of the newest turns, oldest first. An
	// empty sessionID searches every session of the student.
	ListRecent(dbc dbctx.Context, studentID uuid.UUID, sessionID string, limit int) ([]*types.ConversationTurn, error)
	// ListPage returns turns newest first.
	ListPage(dbc dbctx.Context, studentID uuid.UUID, sessionID string, favoritesOnly bool, limit, offset int) ([]*types.ConversationTurn, error)
	ListSince(dbc dbctx.Context, studentID uuid.UUID, since time.Time) ([]*types.ConversationTurn, error)
	CountSince(dbc dbctx.Context, studentID uuid.UUID, since time.Time) (int64, error)
	CountSessions(dbc dbctx.Context, studentID uuid.UUID) (int64, error)
	Timestamps(dbc dbctx.Context, studentID uuid.UUID, since time.Time) ([]time.Time, error)
	ListSessions(dbc dbctx.Context, studentID uuid.UUID, limit int) ([]*types.SessionSummary, error)
	SetFavorite(dbc dbctx.Context, id uuid.UUID, favorite bool) error
}

type conversationTurnRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationTurnRepo(db *gorm.DB, baseLog *logger.Logger) ConversationTurnRepo {
	return &conversationTurnRepo{
		db:  db,
		log: baseLog.With("repo", "ConversationTurnRepo"),
	}
}

func (r *conversationTurnRepo) Create(dbc dbctx.Context, row *types.ConversationTurn) error {
	if row == nil || row.StudentID == uuid.Nil {
		return fmt.Errorf("invalid conversation turn")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *conversationTurnRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ConversationTurn, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.ConversationTurn
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *conversationTurnRepo) ListRecent(dbc dbctx.Context, studentID uuid.UUID, sessionID string, limit int) ([]*types.ConversationTurn, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.ListPage(dbc, studentID, sessionID, false, limit, 0)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (r *conversationTurnRepo) ListPage(dbc dbctx.Context, studentID uuid.UUID, sessionID string, favoritesOnly bool, limit, offset int) ([]*types.ConversationTurn, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Model(&types.ConversationTurn{}).
		Where("student_id = ?", studentID)
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	if favoritesOnly {
		q = q.Where("is_favorite = ?", true)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var out []*types.ConversationTurn
	if err := q.Order("timestamp DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationTurnRepo) ListSince(dbc dbctx.Context, studentID uuid.UUID, since time.Time) ([]*types.ConversationTurn, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ConversationTurn
	err := transaction.WithContext(dbc.Ctx).
		Where("student_id = ? AND timestamp >= ?", studentID, since.UTC()).
		Order("timestamp ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationTurnRepo) CountSince(dbc dbctx.Context, studentID uuid.UUID, since time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ConversationTurn{}).
		Where("student_id = ? AND timestamp >= ?", studentID, since.UTC()).
		Count(&n).Error
	return n, err
}

func (r *conversationTurnRepo) CountSessions(dbc dbctx.Context, studentID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ConversationTurn{}).
		Where("student_id = ?", studentID).
		Distinct("session_id").
		Count(&n).Error
	return n, err
}

func (r *conversationTurnRepo) Timestamps(dbc dbctx.Context, studentID uuid.UUID, since time.Time) ([]time.Time, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []time.Time
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ConversationTurn{}).
		Where("student_id = ? AND timestamp >= ?", studentID, since.UTC()).
		Order("timestamp ASC").
		Pluck("timestamp", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationTurnRepo) ListSessions(dbc dbctx.Context, studentID uuid.UUID, limit int) ([]*types.SessionSummary, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.ConversationTurn
	err := transaction.WithContext(dbc.Ctx).
		Where("student_id = ?", studentID).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byID := map[string]*types.SessionSummary{}
	order := []string{}
	for _, t := range rows {
		s, ok := byID[t.SessionID]
		if !ok {
			s = &types.SessionSummary{
				SessionID:    t.SessionID,
				Subject:      t.Subject,
				FirstMessage: t.StudentMessage,
				StartedAt:    t.Timestamp,
			}
			byID[t.SessionID] = s
			order = append(order, t.SessionID)
		}
		s.TurnCount++
		s.LastAt = t.Timestamp
	}

	out := make([]*types.SessionSummary, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		out = append(out, byID[order[i]])
	}
	// newest session first; sessions are ordered by their first turn
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *conversationTurnRepo) SetFavorite(dbc dbctx.Context, id uuid.UUID, favorite bool) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.ConversationTurn{}).
		Where("id = ?", id).
		Update("is_favorite", favorite)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
