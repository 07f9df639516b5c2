package flanks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Amount is a decimal value as sent by the API. It is kept as text to avoid
// losing precision; the API sends either a JSON string or a JSON number.
type Amount string

// UnmarshalJSON accepts "12.30", 12.30 and null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*a = ""

		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string

		err := json.Unmarshal(data, &s)
		if err != nil {
			return fmt.Errorf("decoding amount: %w", err)
		}

		*a = Amount(s)

		return nil
	}

	var n json.Number

	err := json.Unmarshal(data, &n)
	if err != nil {
		return fmt.Errorf("decoding amount: %w", err)
	}

	*a = Amount(n.String())

	return nil
}

// Float64 parses the amount. Empty amounts parse as zero.
func (a Amount) Float64() (float64, error) {
	if a == "" {
		return 0, nil
	}

	f, err := strconv.ParseFloat(string(a), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", string(a), err)
	}

	return f, nil
}

// String implements fmt.Stringer.
func (a Amount) String() string {
	return string(a)
}

// Date is a calendar date encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate returns the Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(d.Format(time.DateOnly))
}

// UnmarshalJSON accepts "YYYY-MM-DD", a full RFC 3339 timestamp, or null.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}

		return nil
	}

	var s string

	err := json.Unmarshal(data, &s)
	if err != nil {
		return fmt.Errorf("decoding date: %w", err)
	}

	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		parsed, parseErr := time.Parse(layout, s)
		if parseErr == nil {
			d.Time = parsed

			return nil
		}
	}

	return fmt.Errorf("decoding date %q: %w", s, ErrUnexpectedResponse)
}

// MarshalYAML encodes the date as a YYYY-MM-DD scalar.
func (d Date) MarshalYAML() (interface{}, error) {
	if d.IsZero() {
		return nil, nil
	}

	return d.Format(time.DateOnly), nil
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}

	return d.Format(time.DateOnly)
}

// Entities

// Entity is a bank or financial institution Flanks can connect to.
type Entity struct {
	ID      string `json:"id"                 yaml:"id"`
	Name    string `json:"name"               yaml:"name"`
	Country string `json:"country,omitempty"  yaml:"country,omitempty"`
	LogoURL string `json:"logo_url,omitempty" yaml:"logo_url,omitempty"`
}

// Connect API v2

// SessionStatus is the state of a Connect session.
type SessionStatus string

// Known session states. The API may return others.
const (
	SessionStatusWaitingCredentials SessionStatus = "Waiting:ProvideCredentials"
	SessionStatusFinishedOK         SessionStatus = "Finished:OK"
	SessionStatusFinishedError      SessionStatus = "Finished:Error"
)

// Finished reports whether the session reached a terminal state.
func (s SessionStatus) Finished() bool {
	return s == SessionStatusFinishedOK || s == SessionStatusFinishedError
}

// Session is a Connect session.
type Session struct {
	SessionID    string        `json:"session_id"              yaml:"session_id"`
	Status       SessionStatus `json:"status"                  yaml:"status"`
	ConnectionID string        `json:"connection_id,omitempty" yaml:"connection_id,omitempty"`
	ErrorCode    string        `json:"error_code,omitempty"    yaml:"error_code,omitempty"`
}

// SessionConfig configures a new Connect session.
type SessionConfig struct {
	ConnectorID string `json:"connector_id"`
}

// SessionQuery filters ListSessions.
type SessionQuery struct {
	StatusIn    []SessionStatus `json:"status_in,omitempty"`
	SessionIDIn []string        `json:"session_id_in,omitempty"`
}

// Connector is a Connect integration to a provider.
type Connector struct {
	ConnectorID string `json:"connector_id" yaml:"connector_id"`
	Name        string `json:"name"         yaml:"name"`
}

// Credentials API

// CredentialStatus is the state of stored credentials.
type CredentialStatus string

// Credential states.
const (
	CredentialStatusActive  CredentialStatus = "active"
	CredentialStatusPending CredentialStatus = "pending"
	CredentialStatusError   CredentialStatus = "error"
	CredentialStatusExpired CredentialStatus = "expired"
)

// Credential is a stored set of bank credentials.
type Credential struct {
	CredentialsToken string           `json:"credentials_token"    yaml:"credentials_token"`
	EntityID         string           `json:"entity_id"            yaml:"entity_id"`
	Status           CredentialStatus `json:"status"               yaml:"status"`
	CreatedAt        *time.Time       `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt        *time.Time       `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// CredentialStatusResponse is returned by the credentials status endpoints.
type CredentialStatusResponse struct {
	CredentialsToken string           `json:"credentials_token"   yaml:"credentials_token"`
	Status           CredentialStatus `json:"status"              yaml:"status"`
	EntityID         string           `json:"entity_id,omitempty" yaml:"entity_id,omitempty"`
}

// Links API

// Link is a connection link for end-user authentication.
type Link struct {
	LinkToken   string `json:"link_token"             yaml:"link_token"`
	Name        string `json:"name,omitempty"         yaml:"name,omitempty"`
	RedirectURI string `json:"redirect_uri,omitempty" yaml:"redirect_uri,omitempty"`
	IsPaused    *bool  `json:"is_paused,omitempty"    yaml:"is_paused,omitempty"`
}

// LinkCode is an unused exchange code of a link.
type LinkCode struct {
	Code      string `json:"code"                 yaml:"code"`
	ExpiresAt string `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// LinkCreateRequest creates a link. Extra holds additional fields sent as-is.
type LinkCreateRequest struct {
	Name        string
	RedirectURI string
	Extra       map[string]string
}

// LinkUpdateRequest edits a link. Empty fields are left unchanged.
type LinkUpdateRequest struct {
	Name        string
	RedirectURI string
	Extra       map[string]string
}

// Report API

// ReportStatus is the generation state of a report.
type ReportStatus string

// Report states.
const (
	ReportStatusProcessing ReportStatus = "Processing"
	ReportStatusCompleted  ReportStatus = "Completed"
	ReportStatusFailed     ReportStatus = "Failed"
)

// ReportTemplate is a report layout that reports are built from.
type ReportTemplate struct {
	TemplateID  string `json:"template_id"           yaml:"template_id"`
	Name        string `json:"name,omitempty"        yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Report is a generated (or generating) report.
type Report struct {
	ReportID     string       `json:"report_id"               yaml:"report_id"`
	TemplateID   string       `json:"template_id,omitempty"   yaml:"template_id,omitempty"`
	Status       ReportStatus `json:"status"                  yaml:"status"`
	CreatedAt    string       `json:"created_at,omitempty"    yaml:"created_at,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// BuildReportRequest starts report generation. Language defaults to "en".
type BuildReportRequest struct {
	TemplateID         int
	Query              map[string]interface{}
	TemplateAttributes map[string]interface{}
	Language           string
	StartDate          *Date
	EndDate            *Date
}

// Aggregation API v2

// ProductType is the kind of a financial product.
type ProductType string

// Product types.
const (
	ProductTypeAccount    ProductType = "Account"
	ProductTypeCard       ProductType = "Card"
	ProductTypeDeposit    ProductType = "Deposit"
	ProductTypeInvestment ProductType = "Investment"
	ProductTypeLoan       ProductType = "Loan"
)

// Product is a financial product aggregated from a connection.
type Product struct {
	ProductID    string            `json:"product_id"              yaml:"product_id"`
	ProductType  ProductType       `json:"product_type,omitempty"  yaml:"product_type,omitempty"`
	ConnectionID string            `json:"connection_id,omitempty" yaml:"connection_id,omitempty"`
	Name         string            `json:"name,omitempty"          yaml:"name,omitempty"`
	Balance      Amount            `json:"balance,omitempty"       yaml:"balance,omitempty"`
	Currency     string            `json:"currency,omitempty"      yaml:"currency,omitempty"`
	IBAN         string            `json:"iban,omitempty"          yaml:"iban,omitempty"`
	Labels       map[string]string `json:"labels,omitempty"        yaml:"labels,omitempty"`
}

// ProductQuery filters ListProducts.
type ProductQuery struct {
	ProductIDIn    []string          `json:"product_id_in,omitempty"`
	ProductTypeIn  []ProductType     `json:"product_type_in,omitempty"`
	ConnectionIDIn []string          `json:"connection_id_in,omitempty"`
	Labels         map[string]string `json:"labels,omitempty"`
}

// Transaction is a movement on a product.
type Transaction struct {
	TransactionID string            `json:"transaction_id"        yaml:"transaction_id"`
	ProductID     string            `json:"product_id,omitempty"  yaml:"product_id,omitempty"`
	Amount        Amount            `json:"amount,omitempty"      yaml:"amount,omitempty"`
	Currency      string            `json:"currency,omitempty"    yaml:"currency,omitempty"`
	Description   string            `json:"description,omitempty" yaml:"description,omitempty"`
	Date          *Date             `json:"date,omitempty"        yaml:"date,omitempty"`
	Category      string            `json:"category,omitempty"    yaml:"category,omitempty"`
	Labels        map[string]string `json:"labels,omitempty"      yaml:"labels,omitempty"`
}

// TransactionQuery filters ListTransactions.
type TransactionQuery struct {
	ProductIDIn []string          `json:"product_id_in,omitempty"`
	DateFrom    *Date             `json:"date_from,omitempty"`
	DateTo      *Date             `json:"date_to,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Aggregation API v1

// Portfolio is an investment portfolio.
type Portfolio struct {
	PortfolioID string `json:"portfolio_id"          yaml:"portfolio_id"`
	Name        string `json:"name,omitempty"        yaml:"name,omitempty"`
	TotalValue  Amount `json:"total_value,omitempty" yaml:"total_value,omitempty"`
	Currency    string `json:"currency,omitempty"    yaml:"currency,omitempty"`
}

// Investment is a position within a portfolio.
type Investment struct {
	InvestmentID string `json:"investment_id"          yaml:"investment_id"`
	PortfolioID  string `json:"portfolio_id,omitempty" yaml:"portfolio_id,omitempty"`
	Name         string `json:"name,omitempty"         yaml:"name,omitempty"`
	ISIN         string `json:"isin,omitempty"         yaml:"isin,omitempty"`
	Quantity     Amount `json:"quantity,omitempty"     yaml:"quantity,omitempty"`
	Value        Amount `json:"value,omitempty"        yaml:"value,omitempty"`
	Currency     string `json:"currency,omitempty"     yaml:"currency,omitempty"`
}

// Account is a bank account.
type Account struct {
	AccountID string `json:"account_id"         yaml:"account_id"`
	Name      string `json:"name,omitempty"     yaml:"name,omitempty"`
	IBAN      string `json:"iban,omitempty"     yaml:"iban,omitempty"`
	Balance   Amount `json:"balance,omitempty"  yaml:"balance,omitempty"`
	Currency  string `json:"currency,omitempty" yaml:"currency,omitempty"`
}

// Liability is a loan or other debt.
type Liability struct {
	LiabilityID  string `json:"liability_id"            yaml:"liability_id"`
	Name         string `json:"name,omitempty"          yaml:"name,omitempty"`
	Balance      Amount `json:"balance,omitempty"       yaml:"balance,omitempty"`
	InterestRate Amount `json:"interest_rate,omitempty" yaml:"interest_rate,omitempty"`
	Currency     string `json:"currency,omitempty"      yaml:"currency,omitempty"`
}

// Card is a debit or credit card.
type Card struct {
	CardID       string `json:"card_id"                 yaml:"card_id"`
	Name         string `json:"name,omitempty"          yaml:"name,omitempty"`
	MaskedNumber string `json:"masked_number,omitempty" yaml:"masked_number,omitempty"`
	Balance      Amount `json:"balance,omitempty"       yaml:"balance,omitempty"`
	Currency     string `json:"currency,omitempty"      yaml:"currency,omitempty"`
}

// LegacyTransaction is a movement returned by the Aggregation API v1 for accounts,
// cards, investments and liabilities.
type LegacyTransaction struct {
	TransactionID string `json:"transaction_id"          yaml:"transaction_id"`
	Amount        Amount `json:"amount,omitempty"        yaml:"amount,omitempty"`
	Currency      string `json:"currency,omitempty"      yaml:"currency,omitempty"`
	Description   string `json:"description,omitempty"   yaml:"description,omitempty"`
	OperationDate *Date  `json:"operation_date,omitempty" yaml:"operation_date,omitempty"`
}

// Identity is the account holder's identity as reported by the bank.
type Identity struct {
	Name           string `json:"name,omitempty"            yaml:"name,omitempty"`
	DocumentType   string `json:"document_type,omitempty"   yaml:"document_type,omitempty"`
	DocumentNumber string `json:"document_number,omitempty" yaml:"document_number,omitempty"`
	Email          string `json:"email,omitempty"           yaml:"email,omitempty"`
	Phone          string `json:"phone,omitempty"           yaml:"phone,omitempty"`
}

// Holder is a holder of one of the aggregated products.
type Holder struct {
	HolderID       string `json:"holder_id,omitempty"       yaml:"holder_id,omitempty"`
	Name           string `json:"name,omitempty"            yaml:"name,omitempty"`
	DocumentNumber string `json:"document_number,omitempty" yaml:"document_number,omitempty"`
}
