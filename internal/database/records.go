package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"zimp-go/internal/zimp"
)

// documentColumns is the insert column order shared by both backends.
var documentColumns = []string{
	"id", "collection", "kind", "owner_id", "owner_name", "name", "application",
	"parent_id", "shared", "inherited_shares", "is_shared", "file_id",
	"metadata", "thumbnails", "created_at", "modified_at",
}

const selectDocument = `SELECT id, kind, owner_id, owner_name, name, application, parent_id,
	shared, inherited_shares, is_shared, file_id, metadata, thumbnails, created_at, modified_at
	FROM documents`

const orderFoldersFirst = ` ORDER BY CASE kind WHEN 'folder' THEN 0 ELSE 1 END, created_at, id`

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// recordValues flattens r into documentColumns order. JSON columns are
// returned as []byte; absent optional JSON is a nil interface.
func recordValues(collection string, r *zimp.Record) ([]any, error) {
	shared, err := marshalShares(r.Shared)
	if err != nil {
		return nil, fmt.Errorf("encoding shares of %s: %w", r.ID, err)
	}
	inherited, err := marshalShares(r.InheritedShares)
	if err != nil {
		return nil, fmt.Errorf("encoding inherited shares of %s: %w", r.ID, err)
	}

	var metadata, thumbnails any
	if r.Metadata != nil {
		b, err := json.Marshal(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encoding metadata of %s: %w", r.ID, err)
		}
		metadata = b
	}
	if r.Thumbnails != nil {
		b, err := json.Marshal(r.Thumbnails)
		if err != nil {
			return nil, fmt.Errorf("encoding thumbnails of %s: %w", r.ID, err)
		}
		thumbnails = b
	}

	return []any{
		r.ID, collection, string(r.Kind), r.OwnerID, r.OwnerName, r.Name, r.Application,
		nullString(r.ParentID), shared, inherited, r.IsShared, nullString(r.FileID),
		metadata, thumbnails, r.Created.UTC(), r.Modified.UTC(),
	}, nil
}

func scanRecord(row rowScanner) (*zimp.Record, error) {
	var (
		r                    zimp.Record
		kind                 string
		parentID, fileID     sql.NullString
		shared, inherited    []byte
		metadata, thumbnails []byte
	)
	err := row.Scan(&r.ID, &kind, &r.OwnerID, &r.OwnerName, &r.Name, &r.Application, &parentID,
		&shared, &inherited, &r.IsShared, &fileID, &metadata, &thumbnails, &r.Created, &r.Modified)
	if err != nil {
		return nil, err
	}

	r.Kind = zimp.Kind(kind)
	r.ParentID = parentID.String
	r.FileID = fileID.String

	if err := unmarshalShares(shared, &r.Shared); err != nil {
		return nil, fmt.Errorf("decoding shares of %s: %w", r.ID, err)
	}
	if err := unmarshalShares(inherited, &r.InheritedShares); err != nil {
		return nil, fmt.Errorf("decoding inherited shares of %s: %w", r.ID, err)
	}
	if len(metadata) > 0 {
		r.Metadata = &zimp.Metadata{}
		if err := json.Unmarshal(metadata, r.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata of %s: %w", r.ID, err)
		}
	}
	if len(thumbnails) > 0 {
		if err := json.Unmarshal(thumbnails, &r.Thumbnails); err != nil {
			return nil, fmt.Errorf("decoding thumbnails of %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

func marshalShares(shares []zimp.Share) ([]byte, error) {
	if shares == nil {
		shares = []zimp.Share{}
	}
	return json.Marshal(shares)
}

func unmarshalShares(b []byte, dst *[]zimp.Share) error {
	*dst = []zimp.Share{}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
