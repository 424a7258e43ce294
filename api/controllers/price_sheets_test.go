package controllers

import (
	"context"
	"mime"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/internal/pricesheets"
	"github.com/frostline/frostline-backend/pkg/enums"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/pagination"
)

type stubPriceSheetService struct {
	generated   *pricesheets.GenerateInput
	listFilter  *pricesheets.ListFilter
	publishErr  error
	exportedAs  pricesheets.ExportFormat
	generateErr error
}

func (s *stubPriceSheetService) Generate(ctx context.Context, orgID, userID uuid.UUID, input pricesheets.GenerateInput) (*pricesheets.GenerateResult, error) {
	s.generated = &input
	if s.generateErr != nil {
		return nil, s.generateErr
	}
	return &pricesheets.GenerateResult{
		Sheet:    pricesheets.SheetDTO{ID: uuid.New(), Name: input.Name, Status: enums.PriceSheetDraft},
		Warnings: []pricesheets.Warning{{Code: pricesheets.WarningMissingRate, ItemCode: "BF-1"}},
	}, nil
}

func (s *stubPriceSheetService) Get(ctx context.Context, orgID, id uuid.UUID) (*pricesheets.SheetDTO, error) {
	return &pricesheets.SheetDTO{ID: id}, nil
}

func (s *stubPriceSheetService) List(ctx context.Context, orgID uuid.UUID, params pricesheets.ListFilter) (pagination.Page[pricesheets.SheetDTO], error) {
	s.listFilter = &params
	return pagination.Page[pricesheets.SheetDTO]{Items: []pricesheets.SheetDTO{}}, nil
}

func (s *stubPriceSheetService) Publish(ctx context.Context, orgID, userID, id uuid.UUID) (*pricesheets.SheetDTO, error) {
	if s.publishErr != nil {
		return nil, s.publishErr
	}
	return &pricesheets.SheetDTO{ID: id, Status: enums.PriceSheetPublished}, nil
}

func (s *stubPriceSheetService) Archive(ctx context.Context, orgID, userID, id uuid.UUID) (*pricesheets.SheetDTO, error) {
	return &pricesheets.SheetDTO{ID: id, Status: enums.PriceSheetArchived}, nil
}

func (s *stubPriceSheetService) Export(ctx context.Context, orgID, id uuid.UUID, format pricesheets.ExportFormat) (*pricesheets.ExportFile, error) {
	s.exportedAs = format
	return &pricesheets.ExportFile{Filename: "southeast.pdf", ContentType: "application/pdf", Body: []byte("%PDF-1.3")}, nil
}

func (s *stubPriceSheetService) ExpirePublished(ctx context.Context) (int, error) { return 0, nil }

func TestGeneratePriceSheet(t *testing.T) {
	logg := testLogger()
	actor := newTestActor()
	zoneID := uuid.New()
	productID := uuid.New()

	t.Run("success", func(t *testing.T) {
		stub := &stubPriceSheetService{}
		body := `{"zone_id":"` + zoneID.String() + `","name":"Southeast weekly","valid_until":"2026-04-01T00:00:00Z",` +
			`"default_margin_percent":18,"margins":{"` + productID.String() + `":22.5}}`
		rec := serve(GeneratePriceSheet(stub, logg), actor.newRequest(http.MethodPost, "/api/v1/price-sheets", body, nil))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.generated.ZoneID != zoneID || stub.generated.Margins[productID] != 22.5 {
			t.Fatalf("unexpected input %+v", stub.generated)
		}
		if !stub.generated.ValidUntil.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("unexpected valid_until %v", stub.generated.ValidUntil)
		}
		var got pricesheets.GenerateResult
		decodeData(t, rec, &got)
		if len(got.Warnings) != 1 || got.Warnings[0].Code != pricesheets.WarningMissingRate {
			t.Fatalf("expected warning in response, got %+v", got.Warnings)
		}
	})

	t.Run("bad margin key", func(t *testing.T) {
		stub := &stubPriceSheetService{}
		body := `{"zone_id":"` + zoneID.String() + `","name":"x","valid_until":"2026-04-01T00:00:00Z","margins":{"nope":10}}`
		rec := serve(GeneratePriceSheet(stub, logg), actor.newRequest(http.MethodPost, "/", body, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if stub.generated != nil {
			t.Fatal("service should not be called")
		}
	})

	t.Run("missing org", func(t *testing.T) {
		noOrg := testActor{userID: actor.userID}
		req := noOrg.newRequest(http.MethodPost, "/", `{}`, nil)
		rec := serve(GeneratePriceSheet(&stubPriceSheetService{}, logg), req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}

func TestPublishPriceSheetConflict(t *testing.T) {
	stub := &stubPriceSheetService{publishErr: pkgerrors.New(pkgerrors.CodeStateConflict, "price sheet is not a draft")}
	id := uuid.New()
	rec := serve(PublishPriceSheet(stub, testLogger()), newTestActor().newRequest(http.MethodPost, "/", "", map[string]string{"id": id.String()}))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestListPriceSheetsFilters(t *testing.T) {
	stub := &stubPriceSheetService{}
	actor := newTestActor()

	rec := serve(ListPriceSheets(stub, testLogger()), actor.newRequest(http.MethodGet, "/api/v1/price-sheets?status=published&limit=10", "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.listFilter.Status == nil || *stub.listFilter.Status != enums.PriceSheetPublished || stub.listFilter.Limit != 10 {
		t.Fatalf("unexpected filter %+v", stub.listFilter)
	}

	rec = serve(ListPriceSheets(stub, testLogger()), actor.newRequest(http.MethodGet, "/api/v1/price-sheets?status=bogus", "", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestExportPriceSheet(t *testing.T) {
	stub := &stubPriceSheetService{}
	id := uuid.New()
	rec := serve(ExportPriceSheet(stub, testLogger()), newTestActor().newRequest(http.MethodGet, "/?format=pdf", "", map[string]string{"id": id.String()}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.exportedAs != pricesheets.FormatPDF {
		t.Fatalf("unexpected format %s", stub.exportedAs)
	}
	if rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	if err != nil || disposition != "attachment" || params["filename"] != "southeast.pdf" {
		t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}

	rec = serve(ExportPriceSheet(stub, testLogger()), newTestActor().newRequest(http.MethodGet, "/?format=csv", "", map[string]string{"id": id.String()}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for csv, got %d", rec.Code)
	}
}
