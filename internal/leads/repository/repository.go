package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ConversionFields are the financial terms collected by the conversion wizard.
// Values are stored as entered; format checks happen in the service layer.
type ConversionFields struct {
	FinalDailyPayment    string
	FinalPurchasedAmount string
	PaymentFrequency     string
	LoanStartDate        string
	FinalTerm            string
	ClientEmail          string
	LenderType           string
}

type Lead struct {
	ID                     uuid.UUID
	OwnerID                uuid.UUID
	FirstName              string
	LastName               string
	Phone                  string
	Email                  string
	Company                string
	Status                 string
	RecordTypeID           string
	IsConverted            bool
	ConvertedAccountID     *string
	ConvertedContactID     *string
	ConvertedOpportunityID *string
	ConversionFields
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateLeadParams struct {
	OwnerID      uuid.UUID
	FirstName    string
	LastName     string
	Phone        string
	Email        string
	Company      string
	Status       string
	RecordTypeID string
}

type MarkConvertedParams struct {
	AccountID     string
	ContactID     string
	OpportunityID string
}

const leadColumns = `
	id, owner_id, first_name, last_name, phone, email, company, status, record_type_id,
	is_converted, converted_account_id, converted_contact_id, converted_opportunity_id,
	final_daily_payment, final_purchased_amount, payment_frequency, loan_start_date,
	final_term, client_email, lender_type, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.OwnerID, &lead.FirstName, &lead.LastName, &lead.Phone, &lead.Email, &lead.Company,
		&lead.Status, &lead.RecordTypeID,
		&lead.IsConverted, &lead.ConvertedAccountID, &lead.ConvertedContactID, &lead.ConvertedOpportunityID,
		&lead.FinalDailyPayment, &lead.FinalPurchasedAmount, &lead.PaymentFrequency, &lead.LoanStartDate,
		&lead.FinalTerm, &lead.ClientEmail, &lead.LenderType, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lead, err := scanLead(tx.QueryRow(ctx, `
		INSERT INTO leads (id, owner_id, first_name, last_name, phone, email, company, status, record_type_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+leadColumns,
		uuid.New(), params.OwnerID, params.FirstName, params.LastName, params.Phone, params.Email,
		params.Company, params.Status, params.RecordTypeID,
	))
	if err != nil {
		return Lead{}, err
	}

	if err := insertStatusHistory(ctx, tx, lead.ID, nil, lead.Status, &params.OwnerID); err != nil {
		return Lead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
}

func (r *Repository) UpdateConversionFields(ctx context.Context, id uuid.UUID, fields ConversionFields) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			final_daily_payment = $2,
			final_purchased_amount = $3,
			payment_frequency = $4,
			loan_start_date = $5,
			final_term = $6,
			client_email = $7,
			lender_type = $8,
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, fields.FinalDailyPayment, fields.FinalPurchasedAmount, fields.PaymentFrequency,
		fields.LoanStartDate, fields.FinalTerm, fields.ClientEmail, fields.LenderType,
	))
}

// UpdateStatus stores the new status and appends a history row in one
// transaction. It returns the updated lead together with the status it replaced.
// A status equal to the current one is stored without a history row.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, actorID *uuid.UUID) (Lead, string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var oldStatus string
	err = tx.QueryRow(ctx, `SELECT status FROM leads WHERE id = $1 FOR UPDATE`, id).Scan(&oldStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, "", ErrNotFound
	}
	if err != nil {
		return Lead{}, "", err
	}

	lead, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, id, status))
	if err != nil {
		return Lead{}, "", err
	}

	if oldStatus != status {
		if err := insertStatusHistory(ctx, tx, id, &oldStatus, status, actorID); err != nil {
			return Lead{}, "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, "", err
	}
	return lead, oldStatus, nil
}

func (r *Repository) MarkConverted(ctx context.Context, id uuid.UUID, params MarkConvertedParams) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			is_converted = true,
			converted_account_id = NULLIF($2, ''),
			converted_contact_id = NULLIF($3, ''),
			converted_opportunity_id = NULLIF($4, ''),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, params.AccountID, params.ContactID, params.OpportunityID,
	))
}
