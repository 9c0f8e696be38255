package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

const claimColumns = `cl.id, cl.found_item_id, cl.claimant_id, cl.lost_item_id, cl.evidence, cl.status,
	cl.priority, cl.decision_reason, cl.decided_by, cl.created_at, cl.updated_at, cl.decided_at,
	f.title, u.username,
	(SELECT COUNT(*) FROM claim_images ci WHERE ci.claim_id = cl.id)`

const claimFrom = ` FROM claims cl
	JOIN found_items f ON f.id = cl.found_item_id
	JOIN users u ON u.id = cl.claimant_id`

func scanClaim(row interface{ Scan(...any) error }) (*model.Claim, error) {
	c := &model.Claim{}
	var reason sql.NullString
	err := row.Scan(&c.ID, &c.FoundItemID, &c.ClaimantID, &c.LostItemID, &c.Evidence, &c.Status,
		&c.Priority, &reason, &c.DecidedBy, &c.CreatedAt, &c.UpdatedAt, &c.DecidedAt,
		&c.FoundTitle, &c.ClaimantName, &c.ImageCount)
	if err != nil {
		return nil, err
	}
	c.DecisionReason = reason.String
	return c, nil
}

// CreateClaim inserts a claim in the given status.
func CreateClaim(ctx context.Context, q Querier, c *model.Claim) (*model.Claim, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO claims (found_item_id, claimant_id, lost_item_id, evidence, status, priority)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.FoundItemID, c.ClaimantID, c.LostItemID, c.Evidence, c.Status, c.Priority,
	)
	if err != nil {
		return nil, fmt.Errorf("creating claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting claim id: %w", err)
	}

	return GetClaim(ctx, q, id)
}

// GetClaim returns a claim by ID.
func GetClaim(ctx context.Context, q Querier, id int64) (*model.Claim, error) {
	c, err := scanClaim(q.QueryRowContext(ctx,
		`SELECT `+claimColumns+claimFrom+` WHERE cl.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	return c, nil
}

// ClaimFilter narrows claim listings. Zero values match everything.
type ClaimFilter struct {
	Status      string
	FoundItemID int64
	ClaimantID  int64
}

func (f ClaimFilter) where() (string, []any) {
	clause := ` WHERE 1=1`
	var args []any
	if f.Status != "" {
		clause += ` AND cl.status = ?`
		args = append(args, f.Status)
	}
	if f.FoundItemID > 0 {
		clause += ` AND cl.found_item_id = ?`
		args = append(args, f.FoundItemID)
	}
	if f.ClaimantID > 0 {
		clause += ` AND cl.claimant_id = ?`
		args = append(args, f.ClaimantID)
	}
	return clause, args
}

// ListClaims returns one page of claims, highest priority and oldest first,
// together with the total number of matching claims.
func ListClaims(ctx context.Context, q Querier, filter ClaimFilter, limit, offset int) ([]model.Claim, int, error) {
	where, args := filter.where()

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*)`+claimFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting claims: %w", err)
	}

	query := `SELECT ` + claimColumns + claimFrom + where + `
	          ORDER BY CASE cl.priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END,
	                   cl.created_at, cl.id
	          LIMIT ? OFFSET ?`
	rows, err := q.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning claim: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, total, rows.Err()
}

// OpenSiblingClaims returns pending and conflicted claims on a found item,
// excluding the claim with the given ID.
func OpenSiblingClaims(ctx context.Context, q Querier, foundID, excludeID int64) ([]model.Claim, error) {
	claims, _, err := ListClaims(ctx, q, ClaimFilter{FoundItemID: foundID}, -1, 0)
	if err != nil {
		return nil, err
	}
	var open []model.Claim
	for _, c := range claims {
		if c.ID != excludeID && model.ClaimOpen(c.Status) {
			open = append(open, c)
		}
	}
	return open, nil
}

// GetApprovedClaim returns the approved claim on a found item, if any.
func GetApprovedClaim(ctx context.Context, q Querier, foundID int64) (*model.Claim, error) {
	c, err := scanClaim(q.QueryRowContext(ctx,
		`SELECT `+claimColumns+claimFrom+` WHERE cl.found_item_id = ? AND cl.status = ?`,
		foundID, model.ClaimStatusApproved,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting approved claim: %w", err)
	}
	return c, nil
}

// SetClaimStatus moves a claim between statuses with compare-and-set semantics.
// Decisions (approved, rejected) also record who decided, why and when; at
// is the time of the change.
func SetClaimStatus(ctx context.Context, q Querier, id int64, from, to, reason string, decidedBy *int64, at time.Time) error {
	now := at.UTC()
	var decidedAt *time.Time
	if to == model.ClaimStatusApproved || to == model.ClaimStatusRejected {
		decidedAt = &now
	}

	result, err := q.ExecContext(ctx,
		`UPDATE claims
		 SET status = ?, decision_reason = COALESCE(?, decision_reason),
		     decided_by = COALESCE(?, decided_by), decided_at = COALESCE(?, decided_at), updated_at = ?
		 WHERE id = ? AND status = ?`,
		to, nullString(reason), decidedBy, decidedAt, now, id, from,
	)
	if err != nil {
		return fmt.Errorf("updating claim status: %w", err)
	}
	return casResult(result)
}

// SetClaimPriority overwrites a claim's derived priority.
func SetClaimPriority(ctx context.Context, q Querier, id int64, priority string, at time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE claims SET priority = ?, updated_at = ? WHERE id = ?`,
		priority, at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating claim priority: %w", err)
	}
	return nil
}

// AddClaimImage attaches an evidence photo to a claim.
func AddClaimImage(ctx context.Context, q Querier, claimID int64, image []byte, mime string) (*model.EvidenceImage, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO claim_images (claim_id, image, image_mime) VALUES (?, ?, ?)`,
		claimID, image, mime,
	)
	if err != nil {
		return nil, fmt.Errorf("adding claim image: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting claim image id: %w", err)
	}

	img := &model.EvidenceImage{ID: id, ClaimID: claimID, Mime: mime}
	err = q.QueryRowContext(ctx, `SELECT created_at FROM claim_images WHERE id = ?`, id).Scan(&img.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting claim image: %w", err)
	}
	return img, nil
}

// GetClaimImage returns an evidence photo's data and MIME type.
func GetClaimImage(ctx context.Context, q Querier, claimID, imageID int64) ([]byte, string, error) {
	var image []byte
	var mime string
	err := q.QueryRowContext(ctx,
		`SELECT image, image_mime FROM claim_images WHERE id = ? AND claim_id = ?`, imageID, claimID,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting claim image: %w", err)
	}
	return image, mime, nil
}
