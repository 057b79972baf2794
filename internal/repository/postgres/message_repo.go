package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/djassa/djassa-backend/internal/domain"
	"github.com/djassa/djassa-backend/internal/thread"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, sender_id, recipient_id, product_id, content, media_url, media_type, media_name, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var mediaURL, mediaType, mediaName *string
	if msg.Media != nil {
		mediaURL = &msg.Media.URL
		mediaType = &msg.Media.Type
		if msg.Media.Name != "" {
			mediaName = &msg.Media.Name
		}
	}

	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.SenderID, msg.RecipientID, msg.ProductID,
		msg.Content, mediaURL, mediaType, mediaName,
		msg.Read, msg.CreatedAt,
	)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT m.id, m.sender_id, m.recipient_id, m.product_id, m.content,
			m.media_url, m.media_type, m.media_name, m.read, m.created_at,
			u.username, u.display_name
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.id = $1`

	msg, err := scanMessage(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *MessageRepo) ListThread(ctx context.Context, userA, userB uuid.UUID, productID *uuid.UUID) ([]domain.Message, error) {
	// IS NOT DISTINCT FROM: a nil product matches only rows with no product.
	query := `
		SELECT m.id, m.sender_id, m.recipient_id, m.product_id, m.content,
			m.media_url, m.media_type, m.media_name, m.read, m.created_at,
			u.username, u.display_name
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE ((m.sender_id = $1 AND m.recipient_id = $2) OR (m.sender_id = $2 AND m.recipient_id = $1))
			AND m.product_id IS NOT DISTINCT FROM $3
		ORDER BY m.created_at ASC`

	rows, err := r.pool.Query(ctx, query, userA, userB, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

func (r *MessageRepo) MarkRead(ctx context.Context, ids []uuid.UUID, recipientID uuid.UUID) error {
	query := `
		UPDATE messages SET read = TRUE
		WHERE id = ANY($1) AND recipient_id = $2 AND read = FALSE`
	_, err := r.pool.Exec(ctx, query, ids, recipientID)
	return err
}

func (r *MessageRepo) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	// One row per thread: latest message of each normalized
	// (participant pair, product) group the user appears in.
	query := `
		SELECT DISTINCT ON (t.pair_lo, t.pair_hi, t.subject)
			t.id, t.sender_id, t.recipient_id, t.product_id, t.content,
			t.media_url, t.media_type, t.media_name, t.read, t.created_at,
			su.username, su.display_name,
			t.other_id, ou.username, ou.display_name
		FROM (
			SELECT m.*,
				LEAST(m.sender_id::text, m.recipient_id::text) AS pair_lo,
				GREATEST(m.sender_id::text, m.recipient_id::text) AS pair_hi,
				COALESCE(m.product_id::text, 'general') AS subject,
				CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END AS other_id
			FROM messages m
			WHERE m.sender_id = $1 OR m.recipient_id = $1
		) t
		JOIN users su ON su.id = t.sender_id
		JOIN users ou ON ou.id = t.other_id
		ORDER BY t.pair_lo, t.pair_hi, t.subject, t.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var (
			msg                             domain.Message
			mediaURL, mediaType, mediaName  *string
			otherID                         uuid.UUID
			otherUsername, otherDisplayName string
		)
		if err := rows.Scan(
			&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.ProductID, &msg.Content,
			&mediaURL, &mediaType, &mediaName, &msg.Read, &msg.CreatedAt,
			&msg.SenderUsername, &msg.SenderDisplayName,
			&otherID, &otherUsername, &otherDisplayName,
		); err != nil {
			return nil, err
		}
		attachMedia(&msg, mediaURL, mediaType, mediaName)

		convs = append(convs, domain.Conversation{
			ThreadKey:            thread.Key(userID, otherID, msg.ProductID),
			OtherUserID:          otherID,
			OtherUserUsername:    otherUsername,
			OtherUserDisplayName: otherDisplayName,
			ProductID:            msg.ProductID,
			LastMessage:          msg,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.fillUnreadCounts(ctx, userID, convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// fillUnreadCounts annotates each conversation with the viewer's unread tally.
func (r *MessageRepo) fillUnreadCounts(ctx context.Context, userID uuid.UUID, convs []domain.Conversation) error {
	if len(convs) == 0 {
		return nil
	}

	query := `
		SELECT sender_id, COALESCE(product_id::text, 'general'), COUNT(*)
		FROM messages
		WHERE recipient_id = $1 AND read = FALSE
		GROUP BY sender_id, COALESCE(product_id::text, 'general')`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			senderID uuid.UUID
			subject  string
			n        int
		)
		if err := rows.Scan(&senderID, &subject, &n); err != nil {
			return err
		}
		counts[senderID.String()+"/"+subject] = n
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range convs {
		subject := thread.GeneralThread
		if convs[i].ProductID != nil {
			subject = convs[i].ProductID.String()
		}
		convs[i].UnreadCount = counts[convs[i].OtherUserID.String()+"/"+subject]
	}
	return nil
}

func (r *MessageRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND read = FALSE`, userID,
	).Scan(&n)
	return n, err
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var (
		msg                            domain.Message
		mediaURL, mediaType, mediaName *string
	)
	err := row.Scan(
		&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.ProductID, &msg.Content,
		&mediaURL, &mediaType, &mediaName, &msg.Read, &msg.CreatedAt,
		&msg.SenderUsername, &msg.SenderDisplayName,
	)
	if err != nil {
		return nil, err
	}
	attachMedia(&msg, mediaURL, mediaType, mediaName)
	return &msg, nil
}

func attachMedia(msg *domain.Message, url, typ, name *string) {
	if url == nil {
		return
	}
	media := &domain.Media{URL: *url}
	if typ != nil {
		media.Type = *typ
	}
	if name != nil {
		media.Name = *name
	}
	msg.Media = media
}
