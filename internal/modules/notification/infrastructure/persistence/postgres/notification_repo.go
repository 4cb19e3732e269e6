package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

const notificationColumns = `id, type, priority, recipient, sender, title, content, channels, is_read, read_at,
	action_url, group_id, group_count, related_entities, metadata, expires_at, created_at, updated_at`

type notificationRow struct {
	ID              uuid.UUID      `db:"id"`
	Type            string         `db:"type"`
	Priority        string         `db:"priority"`
	Recipient       uuid.UUID      `db:"recipient"`
	Sender          uuid.NullUUID  `db:"sender"`
	Title           string         `db:"title"`
	Content         string         `db:"content"`
	Channels        pq.StringArray `db:"channels"`
	IsRead          bool           `db:"is_read"`
	ReadAt          sql.NullTime   `db:"read_at"`
	ActionURL       string         `db:"action_url"`
	GroupID         string         `db:"group_id"`
	GroupCount      int            `db:"group_count"`
	RelatedEntities types.JSONText `db:"related_entities"`
	Metadata        types.JSONText `db:"metadata"`
	ExpiresAt       sql.NullTime   `db:"expires_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

type deliveryRow struct {
	NotificationID uuid.UUID    `db:"notification_id"`
	Channel        string       `db:"channel"`
	Status         string       `db:"status"`
	SentAt         sql.NullTime `db:"sent_at"`
	Error          string       `db:"error"`
}

type PgNotificationRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPgNotificationRepository(db *sqlx.DB) *PgNotificationRepository {
	return &PgNotificationRepository{db: db, now: time.Now}
}

func (r *PgNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}

	row, err := toRow(n)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES (:id, :type, :priority, :recipient, :sender, :title, :content, :channels, :is_read, :read_at,
			:action_url, :group_id, :group_count, :related_entities, :metadata, :expires_at, :created_at, :updated_at)
	`
	if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
		return err
	}

	for _, s := range n.DeliveryStatus {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO notification_deliveries (notification_id, channel, status, sent_at, error)
			VALUES ($1, $2, $3, $4, $5)
		`, n.ID, string(s.Channel), string(s.State), nullTime(s.SentAt), s.Error)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PgNotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	var row notificationRow
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE id = $1 AND (expires_at IS NULL OR expires_at > $2)`
	if err := r.db.GetContext(ctx, &row, query, id, r.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, err
	}

	items, err := r.hydrate(ctx, []notificationRow{row})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (r *PgNotificationRepository) List(ctx context.Context, recipient uuid.UUID, filter domain.Filter, page domain.Page) ([]domain.Notification, error) {
	where := []string{"recipient = $1", "(expires_at IS NULL OR expires_at > $2)"}
	args := []any{recipient, r.now()}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.Type != "" {
		add("type = $%d", string(filter.Type))
	}
	if filter.Priority != "" {
		add("priority = $%d", string(filter.Priority))
	}
	if filter.IsRead != nil {
		add("is_read = $%d", *filter.IsRead)
	}
	if filter.StartDate != nil {
		add("created_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("created_at <= $%d", *filter.EndDate)
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM notifications
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, notificationColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []domain.Notification{}, nil
	}
	return r.hydrate(ctx, rows)
}

func (r *PgNotificationRepository) CountUnread(ctx context.Context, recipient uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE recipient = $1 AND is_read = FALSE AND (expires_at IS NULL OR expires_at > $2)
	`
	var count int
	err := r.db.GetContext(ctx, &count, query, recipient, r.now())
	return count, err
}

func (r *PgNotificationRepository) UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status domain.DeliveryStatus) error {
	query := `
		UPDATE notification_deliveries
		SET status = $3, sent_at = $4, error = $5
		WHERE notification_id = $1 AND channel = $2 AND status = 'pending'
	`
	res, err := r.db.ExecContext(ctx, query, id, string(status.Channel), string(status.State), nullTime(status.SentAt), status.Error)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrDeliveryNotPending
	}
	return nil
}

func (r *PgNotificationRepository) MarkAsRead(ctx context.Context, recipient uuid.UUID, ids []uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $3, updated_at = $3
		WHERE recipient = $1 AND id = ANY($2::uuid[]) AND is_read = FALSE
		RETURNING id
	`
	var updated []uuid.UUID
	if err := r.db.SelectContext(ctx, &updated, query, recipient, pq.Array(uuidStrings(ids)), at); err != nil {
		return nil, err
	}
	if updated == nil {
		updated = []uuid.UUID{}
	}
	return updated, nil
}

func (r *PgNotificationRepository) MarkAllAsRead(ctx context.Context, recipient uuid.UUID, at time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $2, updated_at = $2
		WHERE recipient = $1 AND is_read = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, recipient, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PgNotificationRepository) Delete(ctx context.Context, recipient, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND recipient = $2`, id, recipient)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (r *PgNotificationRepository) DeleteAll(ctx context.Context, recipient uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE recipient = $1`, recipient)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired removes every record whose expires_at has passed.
func (r *PgNotificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PgNotificationRepository) hydrate(ctx context.Context, rows []notificationRow) ([]domain.Notification, error) {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID.String())
	}

	var deliveries []deliveryRow
	query := `
		SELECT notification_id, channel, status, sent_at, error
		FROM notification_deliveries
		WHERE notification_id = ANY($1::uuid[])
	`
	if err := r.db.SelectContext(ctx, &deliveries, query, pq.Array(ids)); err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]map[domain.Channel]domain.DeliveryStatus, len(rows))
	for _, d := range deliveries {
		if byID[d.NotificationID] == nil {
			byID[d.NotificationID] = make(map[domain.Channel]domain.DeliveryStatus)
		}
		s := domain.DeliveryStatus{
			Channel: domain.Channel(d.Channel),
			State:   domain.DeliveryState(d.Status),
			Error:   d.Error,
		}
		if d.SentAt.Valid {
			t := d.SentAt.Time
			s.SentAt = &t
		}
		byID[d.NotificationID][s.Channel] = s
	}

	out := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		n, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		// delivery entries follow the channel order of the record
		statuses := byID[row.ID]
		n.DeliveryStatus = make([]domain.DeliveryStatus, 0, len(n.Channels))
		for _, c := range n.Channels {
			if s, ok := statuses[c]; ok {
				n.DeliveryStatus = append(n.DeliveryStatus, s)
			}
		}
		out = append(out, *n)
	}
	return out, nil
}

func toRow(n *domain.Notification) (notificationRow, error) {
	related := n.RelatedEntities
	if related == nil {
		related = []domain.RelatedEntity{}
	}
	relatedJSON, err := json.Marshal(related)
	if err != nil {
		return notificationRow{}, fmt.Errorf("marshal related entities: %w", err)
	}

	metadata := n.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return notificationRow{}, fmt.Errorf("marshal metadata: %w", err)
	}

	channels := make(pq.StringArray, 0, len(n.Channels))
	for _, c := range n.Channels {
		channels = append(channels, string(c))
	}

	row := notificationRow{
		ID:              n.ID,
		Type:            string(n.Type),
		Priority:        string(n.Priority),
		Recipient:       n.Recipient,
		Title:           n.Title,
		Content:         n.Content,
		Channels:        channels,
		IsRead:          n.IsRead,
		ReadAt:          nullTime(n.ReadAt),
		ActionURL:       n.ActionURL,
		GroupID:         n.GroupID,
		GroupCount:      n.GroupCount,
		RelatedEntities: types.JSONText(relatedJSON),
		Metadata:        types.JSONText(metadataJSON),
		ExpiresAt:       nullTime(n.ExpiresAt),
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
	}
	if n.Sender != nil {
		row.Sender = uuid.NullUUID{UUID: *n.Sender, Valid: true}
	}
	return row, nil
}

func (row notificationRow) toDomain() (*domain.Notification, error) {
	n := &domain.Notification{
		ID:         row.ID,
		Type:       domain.Type(row.Type),
		Priority:   domain.Priority(row.Priority),
		Recipient:  row.Recipient,
		Title:      row.Title,
		Content:    row.Content,
		IsRead:     row.IsRead,
		ActionURL:  row.ActionURL,
		GroupID:    row.GroupID,
		GroupCount: row.GroupCount,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	for _, c := range row.Channels {
		n.Channels = append(n.Channels, domain.Channel(c))
	}
	if row.Sender.Valid {
		sender := row.Sender.UUID
		n.Sender = &sender
	}
	if row.ReadAt.Valid {
		t := row.ReadAt.Time
		n.ReadAt = &t
	}
	if row.ExpiresAt.Valid {
		t := row.ExpiresAt.Time
		n.ExpiresAt = &t
	}

	n.RelatedEntities = []domain.RelatedEntity{}
	if len(row.RelatedEntities) > 0 {
		if err := row.RelatedEntities.Unmarshal(&n.RelatedEntities); err != nil {
			return nil, fmt.Errorf("decode related entities: %w", err)
		}
	}
	if len(row.Metadata) > 0 {
		if err := row.Metadata.Unmarshal(&n.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return n, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
