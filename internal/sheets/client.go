// Package sheets stores leads as rows in a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/jetriderentals/booking-api/internal/leads"
	"github.com/jetriderentals/booking-api/pkg/logging"
)

const (
	DefaultAppendRange = "Sheet1!A:G"
	DefaultReadRange   = "Sheet1!A:H"

	// RAW stores form input verbatim: no formulas, no number coercion.
	valueInputOption = "RAW"
)

// Config holds the spreadsheet coordinates and service account credentials.
type Config struct {
	SpreadsheetID string
	ClientEmail   string
	// PrivateKey is the PEM key; literal "\n" sequences are expanded so the
	// key can live on one line in an env file.
	PrivateKey string

	AppendRange string
	ReadRange   string

	// Endpoint and HTTPClient override the Google endpoint, mainly in tests.
	// When HTTPClient is set no service account token is minted.
	Endpoint   string
	HTTPClient *http.Client
}

// Store appends and reads lead rows through the Sheets v4 API. It never
// retries; a failed append is reported to the caller once.
type Store struct {
	svc         *gsheets.Service
	sheetID     string
	appendRange string
	readRange   string
	now         func() time.Time
	logger      *logging.Logger

	configErr error
}

// New builds the store. Missing settings do not fail construction: the
// first Append or ListAll returns an error wrapping leads.ErrConfiguration,
// so the server still starts and answers with a generic failure.
func New(ctx context.Context, cfg Config, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Store{
		sheetID:     strings.TrimSpace(cfg.SpreadsheetID),
		appendRange: cfg.AppendRange,
		readRange:   cfg.ReadRange,
		now:         time.Now,
		logger:      logger,
	}
	if s.appendRange == "" {
		s.appendRange = DefaultAppendRange
	}
	if s.readRange == "" {
		s.readRange = DefaultReadRange
	}

	var missing []string
	if s.sheetID == "" {
		missing = append(missing, "GOOGLE_SHEET_ID")
	}
	opts := []option.ClientOption{}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	} else {
		if strings.TrimSpace(cfg.ClientEmail) == "" {
			missing = append(missing, "GOOGLE_CLIENT_EMAIL")
		}
		if strings.TrimSpace(cfg.PrivateKey) == "" {
			missing = append(missing, "GOOGLE_PRIVATE_KEY")
		}
		if len(missing) == 0 {
			jwtCfg := &jwt.Config{
				Email:      cfg.ClientEmail,
				PrivateKey: []byte(ExpandPrivateKey(cfg.PrivateKey)),
				Scopes:     []string{gsheets.SpreadsheetsScope},
				TokenURL:   google.JWTTokenURL,
			}
			opts = append(opts, option.WithTokenSource(jwtCfg.TokenSource(ctx)))
		}
	}
	if len(missing) > 0 {
		s.configErr = fmt.Errorf("sheets: %w: missing %s", leads.ErrConfiguration, strings.Join(missing, ", "))
		logger.Warn("sheets: lead store not configured", "missing", missing)
		return s, nil
	}

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: failed to create service: %w", err)
	}
	s.svc = svc
	return s, nil
}

// ExpandPrivateKey turns escaped newlines back into real ones.
func ExpandPrivateKey(key string) string {
	return strings.ReplaceAll(strings.TrimSpace(key), `\n`, "\n")
}

// Append writes one row: timestamp, name, car, phone, email, pickup date,
// return date, message.
func (s *Store) Append(ctx context.Context, sub leads.Submission) (leads.Ack, error) {
	if s.configErr != nil {
		return leads.Ack{}, s.configErr
	}
	rec := leads.ToRecord(sub, s.now())
	row := []interface{}{
		rec.Timestamp, rec.Name, rec.Car, rec.Phone, rec.Email, rec.PickupDate, rec.ReturnDate, rec.Message,
	}

	resp, err := s.svc.Spreadsheets.Values.
		Append(s.sheetID, s.appendRange, &gsheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return leads.Ack{}, &leads.StoreError{Op: "append", Err: describe(err)}
	}

	ack := leads.Ack{}
	if resp.Updates != nil {
		ack.UpdatedRange = resp.Updates.UpdatedRange
		ack.UpdatedRows = resp.Updates.UpdatedRows
	}
	s.logger.Debug("sheets: row appended", "range", ack.UpdatedRange, "rows", ack.UpdatedRows)
	return ack, nil
}

// ListAll reads every data row, skipping the header row.
func (s *Store) ListAll(ctx context.Context) ([]leads.Record, error) {
	if s.configErr != nil {
		return nil, s.configErr
	}
	resp, err := s.svc.Spreadsheets.Values.Get(s.sheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, &leads.StoreError{Op: "list", Err: describe(err)}
	}
	if len(resp.Values) <= 1 {
		return []leads.Record{}, nil
	}

	out := make([]leads.Record, 0, len(resp.Values)-1)
	for _, row := range resp.Values[1:] {
		out = append(out, rowToRecord(row))
	}
	return out, nil
}

func rowToRecord(row []interface{}) leads.Record {
	cell := func(i int) string {
		if i >= len(row) || row[i] == nil {
			return ""
		}
		return fmt.Sprint(row[i])
	}
	return leads.Record{
		Timestamp:  cell(0),
		Name:       cell(1),
		Car:        cell(2),
		Phone:      cell(3),
		Email:      cell(4),
		PickupDate: cell(5),
		ReturnDate: cell(6),
		Message:    cell(7),
	}
}

// describe trims a googleapi error down to status and message.
func describe(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fmt.Errorf("sheets api %d: %s: %w", gerr.Code, gerr.Message, err)
	}
	return err
}

var _ leads.Store = (*Store)(nil)
