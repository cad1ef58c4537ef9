package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
)

// BM25 column weights for the digest index (title > summary > content).
const (
	titleWeight   = 4.0
	summaryWeight = 2.0
	contentWeight = 1.0

	// snippetTokens bounds the highlighted excerpt width.
	snippetTokens = 12
)

// searchStore implements driven.SearchStore.
type searchStore struct {
	store *Store
}

var _ driven.SearchStore = (*searchStore)(nil)

// VectorCandidates returns chunks with completed embeddings that pass the
// row filters, with their encoded vectors. Scoring is the search
// service's concern.
func (s *searchStore) VectorCandidates(ctx context.Context, filters domain.SearchFilters) ([]driven.ChunkCandidate, error) {
	query := `
		SELECT c.id, c.digest_id, c.chunk_index, c.text, c.embedding
		FROM chunks c
		JOIN digests d ON d.id = c.digest_id
		WHERE c.embedding_status = ? AND c.embedding IS NOT NULL`
	args := []any{string(domain.EmbeddingCompleted)}
	query, args = applyFilters(query, args, filters)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vector candidates: %w", err)
	}
	defer rows.Close()

	var candidates []driven.ChunkCandidate
	for rows.Next() {
		var c driven.ChunkCandidate
		if err := rows.Scan(&c.ChunkID, &c.DigestID, &c.ChunkIndex, &c.Text, &c.Embedding); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// DigestRefs resolves digest metadata for the given IDs.
func (s *searchStore) DigestRefs(ctx context.Context, ids []string) (map[string]driven.DigestRef, error) {
	if len(ids) == 0 {
		return map[string]driven.DigestRef{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id, title, url, published_at FROM digests WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("querying digest refs: %w", err)
	}
	defer rows.Close()

	refs := make(map[string]driven.DigestRef, len(ids))
	for rows.Next() {
		var ref driven.DigestRef
		var publishedAt int64
		if err := rows.Scan(&ref.ID, &ref.Title, &ref.URL, &publishedAt); err != nil {
			return nil, fmt.Errorf("scanning digest ref: %w", err)
		}
		ref.PublishedAt = timeOrZero(publishedAt)
		refs[ref.ID] = ref
	}
	return refs, rows.Err()
}

// SearchDigests runs the weighted full-text query with snippet generation.
func (s *searchStore) SearchDigests(ctx context.Context, query string, limit int, filters domain.SearchFilters) ([]driven.TextHit, error) {
	match := ftsMatchExpr(query)
	if match == "" {
		return nil, nil
	}

	sqlQuery := fmt.Sprintf(`
		SELECT d.id, d.title, d.url, d.published_at,
		       bm25(digests_fts, %f, %f, %f) AS rank,
		       snippet(digests_fts, 2, '', '', '…', %d),
		       d.summary
		FROM digests_fts
		JOIN digests d ON d.rowid = digests_fts.rowid
		WHERE digests_fts MATCH ?`, titleWeight, summaryWeight, contentWeight, snippetTokens)
	args := []any{match}
	sqlQuery, args = applyFilters(sqlQuery, args, filters)
	sqlQuery += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.store.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying digest fts: %w", err)
	}
	defer rows.Close()

	terms := strings.Fields(strings.ToLower(query))
	var hits []driven.TextHit
	for rows.Next() {
		var hit driven.TextHit
		var publishedAt int64
		var rank float64
		var summary string
		if err := rows.Scan(&hit.DigestID, &hit.Title, &hit.URL, &publishedAt, &rank, &hit.Snippet, &summary); err != nil {
			return nil, fmt.Errorf("scanning text hit: %w", err)
		}
		hit.PublishedAt = timeOrZero(publishedAt)
		hit.Score = normaliseRank(rank)
		hit.Field = matchedField(hit.Title, summary, terms)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// SearchChunkText returns chunks matching the query terms, for the
// chunk-level lexical fallback.
func (s *searchStore) SearchChunkText(ctx context.Context, query string, limit int, filters domain.SearchFilters) ([]driven.ChunkTextHit, error) {
	match := ftsMatchExpr(query)
	if match == "" {
		return nil, nil
	}

	sqlQuery := `
		SELECT c.digest_id, c.chunk_index, c.text
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		JOIN digests d ON d.id = c.digest_id
		WHERE chunks_fts MATCH ?`
	args := []any{match}
	sqlQuery, args = applyFilters(sqlQuery, args, filters)
	sqlQuery += " ORDER BY bm25(chunks_fts) LIMIT ?"
	args = append(args, limit)

	rows, err := s.store.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunk fts: %w", err)
	}
	defer rows.Close()

	var hits []driven.ChunkTextHit
	for rows.Next() {
		var hit driven.ChunkTextHit
		if err := rows.Scan(&hit.DigestID, &hit.ChunkIndex, &hit.Text); err != nil {
			return nil, fmt.Errorf("scanning chunk hit: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// CountChunks returns the number of stored chunks.
func (s *searchStore) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// CountDigestsWithChunks returns the number of digests owning at least
// one chunk.
func (s *searchStore) CountDigestsWithChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT digest_id) FROM chunks").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting digests with chunks: %w", err)
	}
	return count, nil
}

// applyFilters appends the digest row filters to a query whose digests
// table is aliased d.
func applyFilters(query string, args []any, filters domain.SearchFilters) (string, []any) {
	if filters.FeedID != nil && *filters.FeedID != "" {
		query += " AND d.feed_id = ?"
		args = append(args, *filters.FeedID)
	}
	if filters.SourceID != nil && *filters.SourceID != "" {
		query += " AND d.source_id = ?"
		args = append(args, *filters.SourceID)
	}
	if filters.Days > 0 {
		cutoff := time.Now().AddDate(0, 0, -filters.Days)
		query += " AND d.published_at >= ?"
		args = append(args, cutoff.Unix())
	}
	return query, args
}

// ftsMatchExpr builds a safe FTS5 MATCH expression: each term quoted and
// OR-joined, so user punctuation cannot break the query syntax.
func ftsMatchExpr(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ReplaceAll(term, `"`, `""`)
		quoted = append(quoted, `"`+term+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// normaliseRank maps a bm25 rank (more negative is better) onto (0,1].
func normaliseRank(rank float64) float64 {
	goodness := -rank
	if goodness < 0 {
		goodness = 0
	}
	return goodness / (goodness + 1)
}

// matchedField reports the highest-priority digest field containing a
// query term, for score tie-breaking.
func matchedField(title, summary string, terms []string) driven.MatchedField {
	lowerTitle := strings.ToLower(title)
	for _, term := range terms {
		if strings.Contains(lowerTitle, term) {
			return driven.MatchedTitle
		}
	}
	lowerSummary := strings.ToLower(summary)
	for _, term := range terms {
		if strings.Contains(lowerSummary, term) {
			return driven.MatchedSummary
		}
	}
	return driven.MatchedContent
}
