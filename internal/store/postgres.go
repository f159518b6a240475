package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/prospectline/leadgen/internal/db"
	"github.com/prospectline/leadgen/internal/model"
)

// PostgresStore implements Store using a pgx pool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	search_query TEXT NOT NULL,
	notes        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leads (
	id                BIGSERIAL PRIMARY KEY,
	email             TEXT NOT NULL,
	name              TEXT,
	company_name      TEXT,
	company_data      JSONB NOT NULL,
	campaign_id       TEXT REFERENCES campaigns(id),
	status            TEXT NOT NULL DEFAULT 'found',
	email_content     TEXT,
	follow_up_at      TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL,
	last_contacted_at TIMESTAMPTZ,
	sent_at           TIMESTAMPTZ,
	has_replied       BOOLEAN NOT NULL DEFAULT FALSE,
	source_domain     TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_email ON leads(lower(email));
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_campaign ON leads(campaign_id);
CREATE INDEX IF NOT EXISTS idx_leads_follow_up ON leads(follow_up_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) CreateLead(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	if lead.Status == "" {
		lead.Status = model.LeadStatusFound
	}
	lead.Email = strings.ToLower(strings.TrimSpace(lead.Email))
	if lead.Email == "" {
		return nil, eris.New("postgres: lead email required")
	}

	profileJSON, err := json.Marshal(lead.Profile)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal profile")
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO leads (email, name, company_name, company_data, campaign_id,
			status, email_content, follow_up_at, created_at, has_replied, source_domain)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10)
		RETURNING id`,
		lead.Email, lead.Name, lead.CompanyName, string(profileJSON),
		nullString(lead.CampaignID), string(lead.Status), lead.EmailContent,
		lead.FollowUpAt, lead.CreatedAt, hostOf(lead.Profile.WebsiteURL),
	).Scan(&lead.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, eris.Wrap(err, "postgres: insert lead")
	}
	return lead, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanPgLead(row)
}

func (s *PostgresStore) GetLeadByEmail(ctx context.Context, email string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email))
	return scanPgLead(row)
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE TRUE`
	var args []any
	if filter.CampaignID != "" {
		args = append(args, filter.CampaignID)
		query += ` AND campaign_id = $1`
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + itoa(len(args))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + itoa(len(args))
		if filter.Offset > 0 {
			args = append(args, filter.Offset)
			query += ` OFFSET $` + itoa(len(args))
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	return collectLeads(rows)
}

func (s *PostgresStore) UpdateEmailContent(ctx context.Context, id int64, content string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET email_content = $1 WHERE id = $2`, content, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: update email content %d", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkEmailed(ctx context.Context, id int64, content string, sentAt, followUpAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads
		 SET status = $1, email_content = $2, sent_at = $3, last_contacted_at = $3, follow_up_at = $4
		 WHERE id = $5 AND has_replied = FALSE AND status IN ($6, $1)`,
		string(model.LeadStatusEmailed), content, sentAt.UTC(), followUpAt.UTC(),
		id, string(model.LeadStatusFound),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark emailed %d", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkFollowedUp(ctx context.Context, id int64, sentAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads
		 SET status = $1, follow_up_at = NULL, last_contacted_at = $2
		 WHERE id = $3 AND status = $4 AND has_replied = FALSE`,
		string(model.LeadStatusFollowedUp), sentAt.UTC(),
		id, string(model.LeadStatusEmailed),
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: mark followed up %d", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) MarkReplied(ctx context.Context, email string) (*model.Lead, error) {
	_, err := s.pool.Exec(ctx,
		`UPDATE leads
		 SET status = $1, has_replied = TRUE, follow_up_at = NULL
		 WHERE lower(email) = lower($2)`,
		string(model.LeadStatusReplied), strings.TrimSpace(email),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: mark replied %s", email)
	}
	return s.GetLeadByEmail(ctx, email)
}

func (s *PostgresStore) DeleteLead(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete lead %d", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteAllLeads(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete all leads")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) DueFollowUps(ctx context.Context, now time.Time) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE follow_up_at IS NOT NULL AND follow_up_at <= $1
		   AND status = $2 AND has_replied = FALSE
		 ORDER BY follow_up_at ASC`,
		now.UTC(), string(model.LeadStatusEmailed),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: due follow-ups")
	}
	defer rows.Close()

	return collectLeads(rows)
}

func (s *PostgresStore) CreateCampaign(ctx context.Context, c *model.Campaign) (*model.Campaign, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO campaigns (id, name, search_query, notes, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.SearchQuery, c.Notes, c.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert campaign %s", c.ID)
	}
	return c, nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT c.id, c.name, c.search_query, c.notes, c.created_at,
			(SELECT COUNT(*) FROM leads l WHERE l.campaign_id = c.id)
		 FROM campaigns c WHERE c.id = $1`, id)
	return scanPgCampaign(row)
}

func (s *PostgresStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.name, c.search_query, c.notes, c.created_at,
			(SELECT COUNT(*) FROM leads l WHERE l.campaign_id = c.id)
		 FROM campaigns c ORDER BY c.created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanPgCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, eris.Wrap(rows.Err(), "postgres: iterate campaigns")
}

func (s *PostgresStore) DeleteCampaign(ctx context.Context, id string, deleteLeads bool) error {
	if deleteLeads {
		if _, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE campaign_id = $1`, id); err != nil {
			return eris.Wrapf(err, "postgres: delete campaign leads %s", id)
		}
	} else {
		if _, err := s.pool.Exec(ctx, `UPDATE leads SET campaign_id = NULL WHERE campaign_id = $1`, id); err != nil {
			return eris.Wrapf(err, "postgres: detach campaign leads %s", id)
		}
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete campaign %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'found' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'emailed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'followed_up' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'replied' THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(*) FROM campaigns)
		FROM leads`)

	var st Stats
	if err := row.Scan(&st.Total, &st.Found, &st.Emailed, &st.FollowedUp, &st.Replied, &st.Campaigns); err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	return &st, nil
}

func (s *PostgresStore) Timeseries(ctx context.Context, days int) ([]TimeseriesPoint, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.pool.Query(ctx,
		`SELECT to_char(created_at::date, 'YYYY-MM-DD'), COUNT(*) FROM leads
		 WHERE created_at >= $1 GROUP BY created_at::date ORDER BY created_at::date`,
		cutoff,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: timeseries")
	}
	defer rows.Close()

	var points []TimeseriesPoint
	for rows.Next() {
		var p TimeseriesPoint
		if err := rows.Scan(&p.Day, &p.Count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan timeseries")
		}
		points = append(points, p)
	}
	return points, eris.Wrap(rows.Err(), "postgres: iterate timeseries")
}

func (s *PostgresStore) SourceBreakdown(ctx context.Context) ([]SourceCount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT COALESCE(source_domain, ''), COUNT(*) FROM leads
		 GROUP BY source_domain ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: source breakdown")
	}
	defer rows.Close()

	var counts []SourceCount
	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.Domain, &sc.Count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan source")
		}
		counts = append(counts, sc)
	}
	return counts, eris.Wrap(rows.Err(), "postgres: iterate sources")
}

func (s *PostgresStore) CampaignPerformance(ctx context.Context) ([]CampaignStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.name,
			COUNT(l.id),
			COALESCE(SUM(CASE WHEN l.status IN ('emailed', 'followed_up', 'replied') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN l.status = 'replied' THEN 1 ELSE 0 END), 0)
		FROM campaigns c
		LEFT JOIN leads l ON l.campaign_id = c.id
		GROUP BY c.id, c.name, c.created_at
		ORDER BY c.created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: campaign performance")
	}
	defer rows.Close()

	var stats []CampaignStats
	for rows.Next() {
		var cs CampaignStats
		if err := rows.Scan(&cs.CampaignID, &cs.CampaignName, &cs.Leads, &cs.Emailed, &cs.Replied); err != nil {
			return nil, eris.Wrap(err, "postgres: scan campaign stats")
		}
		stats = append(stats, cs)
	}
	return stats, eris.Wrap(rows.Err(), "postgres: iterate campaign stats")
}

// pgx scan helpers

func collectLeads(rows pgx.Rows) ([]model.Lead, error) {
	var leads []model.Lead
	for rows.Next() {
		lead, err := scanPgLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func scanPgLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var profileJSON string
	var name, companyName, campaignID, emailContent *string
	var followUpAt, lastContactedAt, sentAt *time.Time

	err := row.Scan(&l.ID, &l.Email, &name, &companyName, &profileJSON,
		&campaignID, &l.Status, &emailContent, &followUpAt, &l.CreatedAt,
		&lastContactedAt, &sentAt, &l.HasReplied)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan lead")
	}

	l.Name = deref(name)
	l.CompanyName = deref(companyName)
	l.CampaignID = deref(campaignID)
	l.EmailContent = deref(emailContent)
	l.FollowUpAt = followUpAt
	l.LastContactedAt = lastContactedAt
	l.SentAt = sentAt
	if err := json.Unmarshal([]byte(profileJSON), &l.Profile); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal profile")
	}
	return &l, nil
}

func scanPgCampaign(row pgx.Row) (*model.Campaign, error) {
	var c model.Campaign
	var notes *string

	err := row.Scan(&c.ID, &c.Name, &c.SearchQuery, &notes, &c.CreatedAt, &c.LeadCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan campaign")
	}
	c.Notes = deref(notes)
	return &c, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
