package company

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/zap-ai/zapai/internal/hours"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("company: not found")

// Querier abstracts the pgx pool so tests can inject pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads company-owned configuration: instances, agents, settings.
type Store struct {
	pool Querier
}

func NewStore(pool Querier) *Store {
	if pool == nil {
		panic("company: querier required")
	}
	return &Store{pool: pool}
}

// InstanceByName resolves an instance from the provider's instance label.
func (s *Store) InstanceByName(ctx context.Context, name string) (*Instance, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, token, company_id, agent_id, connection_status
		FROM instances
		WHERE name = $1
	`, name)
	return scanInstance(row)
}

// InstanceByID resolves an instance by primary key.
func (s *Store) InstanceByID(ctx context.Context, id uuid.UUID) (*Instance, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, token, company_id, agent_id, connection_status
		FROM instances
		WHERE id = $1
	`, id)
	return scanInstance(row)
}

func scanInstance(row pgx.Row) (*Instance, error) {
	var inst Instance
	if err := row.Scan(&inst.ID, &inst.Name, &inst.Token, &inst.CompanyID, &inst.AgentID, &inst.ConnectionStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("company: load instance: %w", err)
	}
	return &inst, nil
}

// UpdateConnectionStatus records the provider's connection state for an
// instance, keyed by instance name as the provider reports it.
func (s *Store) UpdateConnectionStatus(ctx context.Context, name, status string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE instances SET connection_status = $2 WHERE name = $1
	`, name, strings.ToLower(status))
	if err != nil {
		return fmt.Errorf("company: update connection status: %w", err)
	}
	return nil
}

// Agent loads the persona snapshot referenced by an instance.
func (s *Store) Agent(ctx context.Context, id uuid.UUID) (*Agent, error) {
	var a Agent
	err := s.pool.QueryRow(ctx, `
		SELECT id, prompt, COALESCE(knowledge_base, ''), temperature, enable_audio, enable_image
		FROM agents
		WHERE id = $1
	`, id).Scan(&a.ID, &a.Prompt, &a.KnowledgeBase, &a.Temperature, &a.EnableAudio, &a.EnableImage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("company: load agent: %w", err)
	}
	return &a, nil
}

// Settings loads the company's business-hours configuration. A missing row
// is not an error: defaults apply.
func (s *Store) Settings(ctx context.Context, companyID uuid.UUID) (hours.Settings, error) {
	var cfg hours.Settings
	err := s.pool.QueryRow(ctx, `
		SELECT working_days, COALESCE(business_hours_start, ''), COALESCE(business_hours_end, ''),
		       COALESCE(offline_message, ''), COALESCE(informacoes, ''), COALESCE(address, ''), COALESCE(website, '')
		FROM settings
		WHERE company_id = $1
	`, companyID).Scan(&cfg.WorkingDays, &cfg.OpenTime, &cfg.CloseTime, &cfg.OfflineMessage, &cfg.Info, &cfg.Address, &cfg.Website)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return hours.Settings{}, nil
		}
		return hours.Settings{}, fmt.Errorf("company: load settings: %w", err)
	}
	return cfg, nil
}

// GoogleRefreshToken returns the stored calendar refresh token for a company.
func (s *Store) GoogleRefreshToken(ctx context.Context, companyID uuid.UUID) (string, error) {
	var token string
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(google_refresh_token, '') FROM companies WHERE id = $1
	`, companyID).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("company: load refresh token: %w", err)
	}
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

// InstagramAccountByBusinessID resolves the company owning a Meta business id.
func (s *Store) InstagramAccountByBusinessID(ctx context.Context, businessID string) (*InstagramAccount, error) {
	var acct InstagramAccount
	err := s.pool.QueryRow(ctx, `
		SELECT company_id, instagram_business_id, COALESCE(instagram_access_token, ''), COALESCE(meta_webhook_verify_token, '')
		FROM settings
		WHERE instagram_business_id = $1
	`, businessID).Scan(&acct.CompanyID, &acct.BusinessID, &acct.AccessToken, &acct.VerifyToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("company: load instagram account: %w", err)
	}
	return &acct, nil
}

// VerifyTokenByCompany returns a company's Meta webhook verify token, or ""
// when none is configured and the caller should fall back to the default.
func (s *Store) VerifyTokenByCompany(ctx context.Context, companyID uuid.UUID) (string, error) {
	var token string
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(meta_webhook_verify_token, '') FROM settings WHERE company_id = $1
	`, companyID).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("company: load verify token: %w", err)
	}
	return token, nil
}

// ActiveKeywordRules lists the active Instagram auto-reply rules for a company.
func (s *Store) ActiveKeywordRules(ctx context.Context, companyID uuid.UUID) ([]KeywordRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, keyword, reply_text, active
		FROM instagram_keywords
		WHERE company_id = $1 AND active
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("company: list keyword rules: %w", err)
	}
	defer rows.Close()

	var rules []KeywordRule
	for rows.Next() {
		var r KeywordRule
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.Keyword, &r.ReplyText, &r.Active); err != nil {
			return nil, fmt.Errorf("company: scan keyword rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("company: iterate keyword rules: %w", err)
	}
	return rules, nil
}
