package controllers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/internal/products"
	"github.com/frostline/frostline-backend/pkg/pagination"
)

type stubProductService struct {
	uploaded []byte
	update   *products.UpdateInput
	search   string
}

func (s *stubProductService) Create(ctx context.Context, orgID, userID uuid.UUID, input products.CreateInput) (*products.ProductDTO, error) {
	return &products.ProductDTO{ID: uuid.New(), WarehouseID: input.WarehouseID, ItemCode: input.ItemCode}, nil
}

func (s *stubProductService) Update(ctx context.Context, orgID, userID, id uuid.UUID, input products.UpdateInput) (*products.ProductDTO, error) {
	s.update = &input
	return &products.ProductDTO{ID: id}, nil
}

func (s *stubProductService) Delete(ctx context.Context, orgID, id uuid.UUID) error { return nil }

func (s *stubProductService) Get(ctx context.Context, orgID, id uuid.UUID) (*products.ProductDTO, error) {
	return &products.ProductDTO{ID: id}, nil
}

func (s *stubProductService) List(ctx context.Context, orgID uuid.UUID, filter products.ListFilter) (pagination.Page[products.ProductDTO], error) {
	return pagination.Page[products.ProductDTO]{Items: []products.ProductDTO{}}, nil
}

func (s *stubProductService) Upload(ctx context.Context, orgID, userID uuid.UUID, r io.Reader) (*products.UploadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.uploaded = data
	return &products.UploadResult{Created: 2, Errors: []products.RowError{}, UnresolvedWeights: []string{}}, nil
}

func (s *stubProductService) Categorize(ctx context.Context, orgID, userID, id uuid.UUID) (*products.ProductDTO, error) {
	return &products.ProductDTO{ID: id}, nil
}

func (s *stubProductService) Search(ctx context.Context, orgID, userID uuid.UUID, query string, limit int) (*products.SearchResult, error) {
	s.search = query
	return &products.SearchResult{Items: []products.ProductDTO{}}, nil
}

func multipartUpload(t *testing.T, actor testActor, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := actor.newRequest(http.MethodPost, "/api/v1/products/upload", buf.String(), nil)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadProducts(t *testing.T) {
	logg := testLogger()
	actor := newTestActor()

	t.Run("xlsx accepted", func(t *testing.T) {
		stub := &stubProductService{}
		rec := serve(UploadProducts(stub, logg), multipartUpload(t, actor, "Inventory.XLSX", []byte("sheet-bytes")))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if string(stub.uploaded) != "sheet-bytes" {
			t.Fatalf("unexpected upload body %q", stub.uploaded)
		}
		var got products.UploadResult
		decodeData(t, rec, &got)
		if got.Created != 2 {
			t.Fatalf("unexpected result %+v", got)
		}
	})

	t.Run("csv rejected", func(t *testing.T) {
		stub := &stubProductService{}
		rec := serve(UploadProducts(stub, logg), multipartUpload(t, actor, "inventory.csv", []byte("a,b")))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if stub.uploaded != nil {
			t.Fatal("service should not be called")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		req := actor.newRequest(http.MethodPost, "/api/v1/products/upload", "", nil)
		rec := serve(UploadProducts(&stubProductService{}, logg), req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestUpdateProductClearsCategory(t *testing.T) {
	stub := &stubProductService{}
	id := uuid.New()
	rec := serve(UpdateProduct(stub, testLogger()), newTestActor().newRequest(http.MethodPatch, "/",
		`{"category":null,"unit_cost":12.5}`, map[string]string{"id": id.String()}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !stub.update.Category.Set || stub.update.Category.Value != nil {
		t.Fatalf("expected category cleared, got %+v", stub.update.Category)
	}
	if stub.update.CaseWeightLbs.Set {
		t.Fatal("case weight should be left unchanged")
	}
	if stub.update.UnitCost == nil || *stub.update.UnitCost != 12.5 {
		t.Fatalf("unexpected unit cost %v", stub.update.UnitCost)
	}
}

func TestProductHandlersRejectBadInput(t *testing.T) {
	logg := testLogger()
	actor := newTestActor()
	stub := &stubProductService{}

	rec := serve(CategorizeProduct(stub, logg), actor.newRequest(http.MethodPost, "/", "", map[string]string{"id": "42"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}

	rec = serve(ListProducts(stub, logg), actor.newRequest(http.MethodGet, "/api/v1/products?category=venison", "", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", rec.Code)
	}

	rec = serve(SearchProducts(stub, logg), actor.newRequest(http.MethodGet, "/api/v1/products/search?q=chicken+wings&limit=500", "", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for limit over max, got %d", rec.Code)
	}

	rec = serve(SearchProducts(stub, logg), actor.newRequest(http.MethodGet, "/api/v1/products/search?q=chicken+wings", "", nil))
	if rec.Code != http.StatusOK || stub.search != "chicken wings" {
		t.Fatalf("expected search to run, got %d %q", rec.Code, stub.search)
	}
}
