// Package apitest provides an in-memory deal analysis backend served over
// httptest. It records every request so tests can assert on network traffic.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"deal-analyzer-client/internal/models"
)

const (
	Username     = "alice"
	Password     = "secret"
	AccessToken  = "access-1"
	RefreshToken = "refresh-1"
)

// Backend is a fake server. All state is guarded by mu.
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	hits      map[string]int
	total     int
	failures  map[string]int
	gates     map[string]chan struct{}
	deals     map[int64]models.Deal
	documents map[int64]models.Document
	analyses  map[int64]models.AnalysisResult
	exports   map[int64][]models.ExportArtifact
	filters   map[int64]models.FilterSetting
	nextID    int64
}

func New(t testing.TB) *Backend {
	b := &Backend{
		hits:      make(map[string]int),
		failures:  make(map[string]int),
		gates:     make(map[string]chan struct{}),
		deals:     make(map[int64]models.Deal),
		documents: make(map[int64]models.Document),
		analyses:  make(map[int64]models.AnalysisResult),
		exports:   make(map[int64][]models.ExportArtifact),
		filters:   make(map[int64]models.FilterSetting),
		nextID:    100,
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// BaseURL is the API root, with trailing slash.
func (b *Backend) BaseURL() string {
	return b.Server.URL + "/api/"
}

// Hits counts requests for "METHOD /api/path/".
func (b *Backend) Hits(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[method+" "+path]
}

// Total counts every request received.
func (b *Backend) Total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// FailNext makes the next request to method+path answer status.
func (b *Backend) FailNext(method, path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = status
}

// Hold blocks requests to method+path until the returned func is called.
func (b *Backend) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.gates[method+" "+path] = ch
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.gates, method+" "+path)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// SeedDeal stores d, assigning an id when missing, and returns it.
func (b *Backend) SeedDeal(d models.Deal) models.Deal {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d.ID == 0 {
		b.nextID++
		d.ID = b.nextID
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	b.deals[d.ID] = d
	return d
}

func (b *Backend) Documents(dealID int64) []models.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Document
	for _, d := range b.documents {
		if d.Deal == dealID {
			out = append(out, d)
		}
	}
	return out
}

func (b *Backend) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/token/{$}", b.login)
	mux.HandleFunc("POST /api/token/refresh/{$}", b.refresh)
	mux.HandleFunc("POST /api/auth/register/{$}", b.register)
	mux.HandleFunc("GET /api/auth/me/{$}", b.authed(b.me))

	mux.HandleFunc("GET /api/deals/{$}", b.authed(b.listDeals))
	mux.HandleFunc("POST /api/deals/{$}", b.authed(b.createDeal))
	mux.HandleFunc("GET /api/deals/{id}/{$}", b.authed(b.getDeal))
	mux.HandleFunc("PUT /api/deals/{id}/{$}", b.authed(b.updateDeal))
	mux.HandleFunc("DELETE /api/deals/{id}/{$}", b.authed(b.deleteDeal))
	mux.HandleFunc("POST /api/deals/{id}/fetch-data/{$}", b.authed(b.fetchData))

	mux.HandleFunc("POST /api/deals/{id}/documents/{$}", b.authed(b.uploadDocument))
	mux.HandleFunc("GET /api/deals/{id}/documents/{$}", b.authed(b.listDocuments))
	mux.HandleFunc("GET /api/documents/{id}/{$}", b.authed(b.getDocument))
	mux.HandleFunc("DELETE /api/documents/{id}/delete/{$}", b.authed(b.deleteDocument))

	mux.HandleFunc("POST /api/deals/{id}/analyze/{$}", b.authed(b.analyze))
	mux.HandleFunc("GET /api/deals/{id}/analysis/{$}", b.authed(b.getAnalysis))
	mux.HandleFunc("GET /api/deals/{id}/recommendations/{$}", b.authed(b.recommendations))

	mux.HandleFunc("GET /api/deals/{id}/export/{kind}/{$}", b.authed(b.export))
	mux.HandleFunc("GET /api/deals/{id}/exports/{$}", b.authed(b.listExports))
	mux.HandleFunc("GET /media/exports/{name}", b.download)

	mux.HandleFunc("GET /api/filters/{$}", b.authed(b.listFilters))
	mux.HandleFunc("POST /api/filters/{$}", b.authed(b.createFilter))
	mux.HandleFunc("GET /api/filters/{id}/{$}", b.authed(b.getFilter))
	mux.HandleFunc("PUT /api/filters/{id}/{$}", b.authed(b.updateFilter))
	mux.HandleFunc("DELETE /api/filters/{id}/{$}", b.authed(b.deleteFilter))

	mux.HandleFunc("GET /api/dashboard/metrics/{$}", b.authed(b.dashboardMetrics))
	mux.HandleFunc("GET /api/dashboard/recent/{$}", b.authed(b.recentDeals))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		b.mu.Lock()
		b.hits[key]++
		b.total++
		status, fail := b.failures[key]
		delete(b.failures, key)
		gate := b.gates[key]
		b.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		if fail {
			writeJSON(w, status, map[string]string{"detail": "injected failure"})
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (b *Backend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+AccessToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil
}

// ==========================
// Auth
// ==========================

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	if creds.Username != Username || creds.Password != Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	writeJSON(w, http.StatusOK, models.Tokens{Access: AccessToken, Refresh: RefreshToken})
}

func (b *Backend) refresh(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body["refresh"] != RefreshToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": AccessToken})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil || reg.Username == "" || reg.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {"This field is required."}})
		return
	}
	writeJSON(w, http.StatusCreated, models.Ack{Message: "User registered successfully"})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.User{ID: 1, Username: Username, Email: "alice@example.com"})
}

// ==========================
// Deals
// ==========================

func (b *Backend) listDeals(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := make([]models.Deal, 0, len(b.deals))
	for _, d := range b.deals {
		out = append(out, d)
	}
	b.mu.Unlock()
	sortDeals(out)
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createDeal(w http.ResponseWriter, r *http.Request) {
	var in models.DealInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	if strings.TrimSpace(in.Address) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"address": {"This field is required."}})
		return
	}
	d := b.SeedDeal(models.Deal{
		Address:      in.Address,
		City:         in.City,
		State:        in.State,
		ZipCode:      in.ZipCode,
		PropertyType: in.PropertyType,
		AskingPrice:  in.AskingPrice,
		User:         1,
		FetchedData: &models.FetchedData{
			Bedrooms:  3,
			Bathrooms: 2,
			Sqft:      1800,
			Price:     in.AskingPrice,
			Rent:      decimal.NewFromInt(14500),
			CapRate:   0.072,
			YearBuilt: 1998,
		},
	})
	writeJSON(w, http.StatusCreated, d)
}

func (b *Backend) getDeal(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	d, ok := b.deals[id]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (b *Backend) updateDeal(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	var in models.DealInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	d, ok := b.deals[id]
	if ok {
		d.Address, d.City, d.State, d.ZipCode = in.Address, in.City, in.State, in.ZipCode
		d.PropertyType, d.AskingPrice = in.PropertyType, in.AskingPrice
		b.deals[id] = d
	}
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (b *Backend) deleteDeal(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	_, ok := b.deals[id]
	delete(b.deals, id)
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) fetchData(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	fetched := models.FetchedData{Bedrooms: 3, Bathrooms: 2, Sqft: 1800, Zestimate: decimal.NewFromInt(350000)}
	b.mu.Lock()
	d, ok := b.deals[id]
	if ok {
		d.FetchedData = &fetched
		b.deals[id] = d
	}
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, models.FetchResult{Message: "Data fetched successfully.", FetchedData: fetched})
}

// ==========================
// Documents
// ==========================

func (b *Backend) uploadDocument(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "File and doc_type are required."})
		return
	}
	f, hdr, err := r.FormFile("file")
	kind := models.DocumentKind(r.FormValue("doc_type"))
	if err != nil || !kind.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "File and doc_type are required."})
		return
	}
	defer f.Close()
	_, _ = io.Copy(io.Discard, f)

	b.mu.Lock()
	if _, ok := b.deals[id]; !ok {
		b.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	b.nextID++
	doc := models.Document{
		ID:         b.nextID,
		Deal:       id,
		File:       "/media/uploads/" + hdr.Filename,
		DocType:    kind,
		UploadedAt: time.Now().UTC(),
	}
	b.documents[doc.ID] = doc
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, doc)
}

func (b *Backend) listDocuments(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	docs := b.Documents(id)
	if docs == nil {
		docs = []models.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (b *Backend) getDocument(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	doc, ok := b.documents[id]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (b *Backend) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	delete(b.documents, id)
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// ==========================
// Analysis
// ==========================

func (b *Backend) analyze(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	d, ok := b.deals[id]
	if !ok {
		b.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	irr := 0.14
	risk := models.RiskLow
	capRate := 0.072
	if d.FetchedData != nil && d.FetchedData.CapRate > 0 {
		capRate = d.FetchedData.CapRate
	}
	b.nextID++
	res := models.AnalysisResult{
		ID:              b.nextID,
		Deal:            id,
		CapRate:         capRate,
		CashOnCash:      0.11,
		IRR:             &irr,
		PassStatus:      capRate >= 0.06,
		Recommendations: []string{"Negotiate 3% below asking", "Verify T12 utility expenses"},
		RiskScore:       &risk,
		RiskFlags:       []string{},
		CreatedAt:       time.Now().UTC(),
	}
	b.analyses[id] = res
	resID := res.ID
	d.AnalysisResult = &resID
	b.deals[id] = d
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, res)
}

func (b *Backend) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	res, ok := b.analyses[id]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (b *Backend) recommendations(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	res, ok := b.analyses[id]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, models.Recommendations{Recommendations: res.Recommendations})
}

// ==========================
// Exports
// ==========================

func (b *Backend) export(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	kind := models.ExportKind(r.PathValue("kind"))
	if !kind.Valid() {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	ext := map[models.ExportKind]string{models.ExportPDF: "pdf", models.ExportExcel: "xlsx", models.ExportLOI: "pdf"}[kind]

	b.mu.Lock()
	if _, ok := b.deals[id]; !ok {
		b.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	b.nextID++
	now := time.Now().UTC()
	file := fmt.Sprintf("/media/exports/deal_%d_%s_%d.%s", id, kind, b.nextID, ext)
	art := models.ExportArtifact{
		ID:          b.nextID,
		Deal:        id,
		File:        file,
		FileURL:     b.Server.URL + file,
		ExportType:  kind,
		GeneratedAt: &now,
	}
	b.exports[id] = append(b.exports[id], art)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, art)
}

func (b *Backend) listExports(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	out := append([]models.ExportArtifact{}, b.exports[id]...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) download(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write([]byte("export:" + r.PathValue("name")))
}

// ==========================
// Filters and dashboard
// ==========================

func (b *Backend) listFilters(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := make([]models.FilterSetting, 0, len(b.filters))
	for _, f := range b.filters {
		out = append(out, f)
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createFilter(w http.ResponseWriter, r *http.Request) {
	var f models.FilterSetting
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	b.nextID++
	f.ID, f.User, f.CreatedAt = b.nextID, 1, time.Now().UTC()
	b.filters[f.ID] = f
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, f)
}

func (b *Backend) getFilter(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	f, ok := b.filters[id]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (b *Backend) updateFilter(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	var f models.FilterSetting
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	old, ok := b.filters[id]
	if ok {
		f.ID, f.User, f.CreatedAt = id, old.User, old.CreatedAt
		b.filters[id] = f
	}
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (b *Backend) deleteFilter(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	delete(b.filters, id)
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) dashboardMetrics(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	m := models.DashboardMetrics{TotalDeals: len(b.deals)}
	var sum float64
	for _, a := range b.analyses {
		sum += a.CapRate
		if a.PassStatus {
			m.PassCount++
		} else {
			m.FailCount++
		}
	}
	if n := len(b.analyses); n > 0 {
		m.AverageCapRate = sum / float64(n)
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, m)
}

func (b *Backend) recentDeals(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := []models.RecentDeal{}
	for id, a := range b.analyses {
		out = append(out, models.RecentDeal{
			DealID:     id,
			Address:    b.deals[id].Address,
			CapRate:    a.CapRate,
			PassStatus: a.PassStatus,
			AnalyzedOn: a.CreatedAt.Format("2006-01-02"),
		})
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func sortDeals(ds []models.Deal) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].ID < ds[j].ID })
}
