package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
)

// digestStore implements driven.DigestStore.
type digestStore struct {
	store *Store
}

var _ driven.DigestStore = (*digestStore)(nil)

// SaveDigest stores or updates a digest.
func (d *digestStore) SaveDigest(ctx context.Context, digest *domain.Digest) error {
	if digest.ID == "" {
		digest.ID = uuid.NewString()
	}
	if digest.CreatedAt.IsZero() {
		digest.CreatedAt = time.Now()
	}

	_, err := d.store.db.ExecContext(ctx, `
		INSERT INTO digests (id, feed_id, source_id, title, summary, content, url, published_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			feed_id = excluded.feed_id,
			source_id = excluded.source_id,
			title = excluded.title,
			summary = excluded.summary,
			content = excluded.content,
			url = excluded.url,
			published_at = excluded.published_at
	`, digest.ID, digest.FeedID, digest.SourceID, digest.Title, digest.Summary,
		digest.Content, digest.URL, unixOrZero(digest.PublishedAt), digest.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("saving digest: %w", err)
	}
	return nil
}

// SaveChunks stores chunks for a digest in one transaction.
func (d *digestStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, digest_id, chunk_index, text, token_count, start_offset, end_offset, embedding, embedding_status, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(digest_id, chunk_index) DO UPDATE SET
			text = excluded.text,
			token_count = excluded.token_count,
			start_offset = excluded.start_offset,
			end_offset = excluded.end_offset,
			embedding = excluded.embedding,
			embedding_status = excluded.embedding_status,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = uuid.NewString()
		}
		status := chunk.EmbeddingStatus
		if status == "" {
			status = domain.EmbeddingPending
		}

		var embedding []byte
		if len(chunk.Embedding) > 0 {
			embedding = domain.EncodeEmbedding(chunk.Embedding)
		}

		var metadata any
		if len(chunk.Metadata) > 0 {
			data, err := json.Marshal(chunk.Metadata)
			if err != nil {
				return fmt.Errorf("marshalling chunk metadata: %w", err)
			}
			metadata = string(data)
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DigestID, chunk.ChunkIndex,
			chunk.Text, chunk.TokenCount, chunk.StartOffset, chunk.EndOffset,
			embedding, string(status), metadata); err != nil {
			return fmt.Errorf("saving chunk %s: %w", chunk.ID, err)
		}
	}

	return tx.Commit()
}

// SetEmbedding records a chunk's embedding and marks it completed.
func (d *digestStore) SetEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding", domain.ErrInvalidArgument)
	}

	result, err := d.store.db.ExecContext(ctx, `
		UPDATE chunks SET embedding = ?, embedding_status = ? WHERE id = ?
	`, domain.EncodeEmbedding(embedding), string(domain.EmbeddingCompleted), chunkID)
	if err != nil {
		return fmt.Errorf("setting embedding: %w", err)
	}
	return requireRow(result, chunkID)
}

// MarkEmbeddingFailed marks a chunk's embedding attempt as failed.
func (d *digestStore) MarkEmbeddingFailed(ctx context.Context, chunkID string) error {
	result, err := d.store.db.ExecContext(ctx, `
		UPDATE chunks SET embedding = NULL, embedding_status = ? WHERE id = ?
	`, string(domain.EmbeddingFailed), chunkID)
	if err != nil {
		return fmt.Errorf("marking embedding failed: %w", err)
	}
	return requireRow(result, chunkID)
}

// GetDigest retrieves a digest by ID.
func (d *digestStore) GetDigest(ctx context.Context, id string) (*domain.Digest, error) {
	row := d.store.db.QueryRowContext(ctx, `
		SELECT id, feed_id, source_id, title, summary, content, url, published_at, created_at
		FROM digests WHERE id = ?
	`, id)

	var digest domain.Digest
	var publishedAt, createdAt int64
	err := row.Scan(&digest.ID, &digest.FeedID, &digest.SourceID, &digest.Title,
		&digest.Summary, &digest.Content, &digest.URL, &publishedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("digest %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting digest: %w", err)
	}

	digest.PublishedAt = timeOrZero(publishedAt)
	digest.CreatedAt = timeOrZero(createdAt)
	return &digest, nil
}

// GetChunks retrieves all chunks for a digest, ordered by chunk index.
func (d *digestStore) GetChunks(ctx context.Context, digestID string) ([]domain.Chunk, error) {
	rows, err := d.store.db.QueryContext(ctx, `
		SELECT id, digest_id, chunk_index, text, token_count, start_offset, end_offset, embedding, embedding_status, metadata
		FROM chunks WHERE digest_id = ? ORDER BY chunk_index
	`, digestID)
	if err != nil {
		return nil, fmt.Errorf("getting chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var embedding []byte
		var status string
		var metadata sql.NullString

		if err := rows.Scan(&chunk.ID, &chunk.DigestID, &chunk.ChunkIndex, &chunk.Text,
			&chunk.TokenCount, &chunk.StartOffset, &chunk.EndOffset,
			&embedding, &status, &metadata); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		chunk.EmbeddingStatus = domain.EmbeddingStatus(status)
		if len(embedding) > 0 {
			chunk.Embedding = domain.DecodeEmbedding(embedding)
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
			}
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// DeleteDigest removes a digest and its chunks.
func (d *digestStore) DeleteDigest(ctx context.Context, id string) error {
	_, err := d.store.db.ExecContext(ctx, "DELETE FROM digests WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting digest: %w", err)
	}
	return nil
}

// DeleteByFeed removes all digests (and their chunks) for a feed.
func (d *digestStore) DeleteByFeed(ctx context.Context, feedID string) error {
	_, err := d.store.db.ExecContext(ctx, "DELETE FROM digests WHERE feed_id = ?", feedID)
	if err != nil {
		return fmt.Errorf("deleting digests by feed: %w", err)
	}
	return nil
}

// DeleteBySource removes all digests (and their chunks) for a source.
func (d *digestStore) DeleteBySource(ctx context.Context, sourceID string) error {
	_, err := d.store.db.ExecContext(ctx, "DELETE FROM digests WHERE source_id = ?", sourceID)
	if err != nil {
		return fmt.Errorf("deleting digests by source: %w", err)
	}
	return nil
}

// requireRow translates a zero-row update into ErrNotFound.
func requireRow(result sql.Result, chunkID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("chunk %s: %w", chunkID, domain.ErrNotFound)
	}
	return nil
}

// unixOrZero stores the zero time as 0 rather than a negative epoch.
func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// timeOrZero is the inverse of unixOrZero.
func timeOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}
