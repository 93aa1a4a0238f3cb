package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-tag-detector/internal/repository"
	"go-tag-detector/pkg/models"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

var _ repository.DetectionRepository = (*DetectionRepository)(nil)

// SaveDetections stores a published detection array and one sighting row
// per tag.
func (r *DetectionRepository) SaveDetections(ctx context.Context, topic string, detections models.AprilTagDetectionArray) (int64, error) {
	payload, err := json.Marshal(detections)
	if err != nil {
		return 0, fmt.Errorf("failed to encode detections: %w", err)
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO detection_arrays (topic, seq, stamp, frame_id, detection_count, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`, topic, int64(detections.Header.Seq), detections.Header.Stamp.UTC().Format(time.RFC3339Nano),
		detections.Header.FrameID, len(detections.Detections), string(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to insert detections: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, det := range detections.Detections {
		position := det.Pose.Pose.Pose.Position
		for i, tagID := range det.ID {
			var size float64
			if i < len(det.Size) {
				size = det.Size[i]
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO tag_sightings (array_id, tag_id, size, x, y, z)
				VALUES (?, ?, ?, ?, ?, ?)
			`, id, tagID, size, position.X, position.Y, position.Z); err != nil {
				return 0, fmt.Errorf("failed to insert sighting: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit detections: %w", err)
	}
	return id, nil
}

// GetDetections retrieves a stored detection array by its ID.
func (r *DetectionRepository) GetDetections(ctx context.Context, id int64) (*models.HistoryEntry, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, topic, payload FROM detection_arrays WHERE id = ?
	`, id)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrDetectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get detections: %w", err)
	}
	return entry, nil
}

// ListRecent returns up to limit detection arrays, newest first.
func (r *DetectionRepository) ListRecent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, topic, payload FROM detection_arrays
		ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list detections: %w", err)
	}
	return collectEntries(rows)
}

// ListByTag returns up to limit detection arrays containing tagID, newest first.
func (r *DetectionRepository) ListByTag(ctx context.Context, tagID int, limit int) ([]models.HistoryEntry, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT DISTINCT a.id, a.topic, a.payload
		FROM detection_arrays a
		JOIN tag_sightings s ON s.array_id = a.id
		WHERE s.tag_id = ?
		ORDER BY a.id DESC LIMIT ?
	`, tagID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list detections for tag: %w", err)
	}
	return collectEntries(rows)
}

// Close closes the underlying database.
func (r *DetectionRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.HistoryEntry, error) {
	var entry models.HistoryEntry
	var payload string
	if err := row.Scan(&entry.ID, &entry.Topic, &payload); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &entry.TagDetections); err != nil {
		return nil, fmt.Errorf("failed to decode detections %d: %w", entry.ID, err)
	}
	return &entry, nil
}

func collectEntries(rows *sql.Rows) ([]models.HistoryEntry, error) {
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}
