package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/joe-wehbe/mouser-sheets-automation/interfaces"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Compile-time check to ensure GoogleSheet implements SheetGateway
var _ interfaces.SheetGateway = (*GoogleSheet)(nil)

// GoogleSheet is the first worksheet of a Google spreadsheet
type GoogleSheet struct {
	service       *gsheets.Service
	spreadsheetID string
	title         string
}

// OpenGoogleSheet authenticates with a service account key file and opens the
// first worksheet of the spreadsheet
func OpenGoogleSheet(ctx context.Context, spreadsheetID, credentialsFile string) (*GoogleSheet, error) {
	key, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: reading credentials: %w", ErrAuth, err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(key, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing credentials %s: %w", ErrAuth, credentialsFile, err)
	}

	return NewGoogleSheet(ctx, spreadsheetID, option.WithHTTPClient(jwtConfig.Client(ctx)))
}

// NewGoogleSheet opens the first worksheet using already configured client options
func NewGoogleSheet(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*GoogleSheet, error) {
	service, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating sheets service: %w", ErrAuth, err)
	}

	spreadsheet, err := service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyError(fmt.Sprintf("opening spreadsheet %s", spreadsheetID), err)
	}

	if len(spreadsheet.Sheets) == 0 || spreadsheet.Sheets[0].Properties == nil {
		return nil, fmt.Errorf("%w: spreadsheet %s has no worksheets", ErrNotFound, spreadsheetID)
	}

	return &GoogleSheet{
		service:       service,
		spreadsheetID: spreadsheetID,
		title:         spreadsheet.Sheets[0].Properties.Title,
	}, nil
}

// Title returns the title of the worksheet in use
func (g *GoogleSheet) Title() string {
	return g.title
}

// Describe implements interfaces.SheetGateway
func (g *GoogleSheet) Describe() string {
	return fmt.Sprintf("google:%s/%s", g.spreadsheetID, g.title)
}

// ReadColumn implements interfaces.SheetGateway
func (g *GoogleSheet) ReadColumn(ctx context.Context, column int) ([]string, error) {
	cells, err := openColumnRange(column)
	if err != nil {
		return nil, err
	}
	rng := quoteSheetTitle(g.title) + "!" + cells

	resp, err := g.service.Spreadsheets.Values.Get(g.spreadsheetID, rng).
		MajorDimension("ROWS").
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyError(fmt.Sprintf("reading %s", rng), err)
	}

	values := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 && row[0] != nil {
			values[i] = fmt.Sprint(row[0])
		}
	}

	return trimTrailingBlanks(values), nil
}

// WriteRange implements interfaces.SheetGateway. Values are stored as typed, without formula parsing.
func (g *GoogleSheet) WriteRange(ctx context.Context, column, rowStart, rowEnd int, values []string) error {
	cells, err := checkWrite(column, rowStart, rowEnd, values)
	if err != nil {
		return err
	}
	rng := quoteSheetTitle(g.title) + "!" + cells

	rows := make([][]interface{}, len(values))
	for i, v := range values {
		rows[i] = []interface{}{v}
	}

	_, err = g.service.Spreadsheets.Values.Update(g.spreadsheetID, rng, &gsheets.ValueRange{
		Range:          rng,
		MajorDimension: "ROWS",
		Values:         rows,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, rng, err)
	}

	return nil
}

// Close implements interfaces.SheetGateway, there is nothing to release
func (g *GoogleSheet) Close() error {
	return nil
}

// classifyError maps API and token errors onto the package sentinel errors
func classifyError(action string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s: %w", ErrNotFound, action, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s: %w", ErrAuth, action, err)
		}
	}

	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		return fmt.Errorf("%w: %s: %w", ErrAuth, action, err)
	}

	return fmt.Errorf("%s: %w", action, err)
}
