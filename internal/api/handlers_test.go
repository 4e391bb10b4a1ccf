package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/daycare/internal/auth"
	"example.com/daycare/internal/domain"
)

func TestWalkStartAndEnd(t *testing.T) {
	handler, mux := newTestHandler(t, seedRoster())

	rr := doRequest(mux, http.MethodPost, "/v1/dogs/dog-max/activities/walk/start", nil, writerClaims())
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var started ActivityTransitionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &started); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if started.RecordID == "" {
		t.Fatal("expected a record id")
	}

	rr = doRequest(mux, http.MethodPost, "/v1/dogs/dog-max/activities/walk/end", nil, writerClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var ended ActivityTransitionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &ended); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if ended.RecordID != started.RecordID {
		t.Fatalf("end returned %s, start returned %s", ended.RecordID, started.RecordID)
	}

	dog, ok := handler.service.GetDog("dog-max")
	if !ok {
		t.Fatal("dog disappeared")
	}
	if dog.Walks.OpenID != "" {
		t.Fatalf("expected no open walk, got %s", dog.Walks.OpenID)
	}
}

func TestDoubleStartReturnsConflict(t *testing.T) {
	_, mux := newTestHandler(t, seedRoster())

	rr := doRequest(mux, http.MethodPost, "/v1/dogs/dog-max/activities/indoor/start", nil, writerClaims())
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(mux, http.MethodPost, "/v1/dogs/dog-max/activities/indoor/start", nil, writerClaims())
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d: %s", rr.Code, rr.Body.String())
	}

	var payload map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if payload["type"] != "conflict" {
		t.Fatalf("expected conflict type, got %q", payload["type"])
	}
}

func TestEndWithoutOpenReturnsConflict(t *testing.T) {
	_, mux := newTestHandler(t, seedRoster())

	rr := doRequest(mux, http.MethodPost, "/v1/dogs/dog-max/activities/walk/end", nil, writerClaims())
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestUnknownDogReturnsNotFound(t *testing.T) {
	_, mux := newTestHandler(t, seedRoster())

	rr := doRequest(mux, http.MethodPost, "/v1/dogs/nope/activities/walk/start", nil, writerClaims())
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestStartRequiresWriteScope(t *testing.T) {
	_, mux := newTestHandler(t, seedRoster())

	readOnly := &auth.Claims{
		Subject:   "tester",
		Scopes:    map[string]struct{}{auth.ScopeActivitiesRead: {}},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	rr := doRequest(mux, http.MethodPost, "/v1/dogs/dog-max/activities/walk/start", nil, readOnly)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(mux, http.MethodGet, "/v1/dogs", nil, readOnly)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAmendRejectsInvertedTimes(t *testing.T) {
	_, mux := newTestHandler(t, seedRoster())

	start := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(-time.Minute)
	body := AmendRecordRequest{StartTime: start, EndTime: &end}

	rr := doRequest(mux, http.MethodPut, "/v1/dogs/dog-max/records/rec-1?kind=walk", body, writerClaims())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAmendAndDeleteRecord(t *testing.T) {
	handler, mux := newTestHandler(t, seedRoster())

	rr := doRequest(mux, http.MethodPost, "/v1/dogs/dog-max/activities/walk/start", nil, writerClaims())
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}
	var started ActivityTransitionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &started); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	startAt := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	endAt := startAt.Add(25 * time.Minute)
	body := AmendRecordRequest{
		StartTime:  startAt,
		EndTime:    &endAt,
		PoopStatus: "normal",
		PeeStatus:  "little",
		Notes:      "pulled hard near the gate",
	}
	rr = doRequest(mux, http.MethodPut, "/v1/dogs/dog-max/records/"+started.RecordID+"?kind=walk", body, writerClaims())
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d: %s", rr.Code, rr.Body.String())
	}

	dog, _ := handler.service.GetDog("dog-max")
	record, ok := dog.Walks.Record(started.RecordID)
	if !ok {
		t.Fatal("record missing after amend")
	}
	if record.PoopStatus != domain.PoopNormal || record.Notes != "pulled hard near the gate" {
		t.Fatalf("amend not applied: %+v", record)
	}

	rr = doRequest(mux, http.MethodDelete, "/v1/dogs/dog-max/records/"+started.RecordID+"?kind=walk", nil, writerClaims())
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d: %s", rr.Code, rr.Body.String())
	}

	dog, _ = handler.service.GetDog("dog-max")
	if len(dog.Walks.Records) != 0 {
		t.Fatalf("expected empty ledger, got %d records", len(dog.Walks.Records))
	}
}

func TestListRecordsPaginates(t *testing.T) {
	_, mux := newTestHandler(t, seedRoster())

	for i := 0; i < 3; i++ {
		rr := doRequest(mux, http.MethodPost, "/v1/dogs/dog-max/activities/walk/start", nil, writerClaims())
		if rr.Code != http.StatusCreated {
			t.Fatalf("start %d: expected 201 got %d", i, rr.Code)
		}
		rr = doRequest(mux, http.MethodPost, "/v1/dogs/dog-max/activities/walk/end", nil, writerClaims())
		if rr.Code != http.StatusOK {
			t.Fatalf("end %d: expected 200 got %d", i, rr.Code)
		}
	}

	rr := doRequest(mux, http.MethodGet, "/v1/dogs/dog-max/records?kind=walk&limit=2", nil, writerClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var first ListRecordsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &first); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(first.Items) != 2 {
		t.Fatalf("expected 2 items got %d", len(first.Items))
	}
	if first.NextCursor == "" {
		t.Fatal("expected a next cursor")
	}

	rr = doRequest(mux, http.MethodGet, "/v1/dogs/dog-max/records?kind=walk&limit=2&cursor="+first.NextCursor, nil, writerClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var second ListRecordsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &second); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(second.Items) != 1 {
		t.Fatalf("expected 1 item got %d", len(second.Items))
	}
	if second.NextCursor != "" {
		t.Fatalf("expected no next cursor, got %q", second.NextCursor)
	}
	if second.Items[0].ID == first.Items[0].ID || second.Items[0].ID == first.Items[1].ID {
		t.Fatal("pages overlap")
	}
}

func TestDogLifecycle(t *testing.T) {
	_, mux := newTestHandler(t, nil)

	req := DogProfileRequest{
		Name:       "Luna",
		Breed:      "Border Collie",
		RoomColor:  "green",
		RoomNumber: 2,
		Size:       "M",
	}
	rr := doRequest(mux, http.MethodPost, "/v1/dogs", req, dogAdminClaims())
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}
	var created DogView
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == "" || created.Profile.Name != "Luna" {
		t.Fatalf("unexpected created dog: %+v", created)
	}

	req.RoomNumber = 5
	rr = doRequest(mux, http.MethodPut, "/v1/dogs/"+created.ID, req, dogAdminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(mux, http.MethodGet, "/v1/dogs/"+created.ID, nil, dogAdminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var fetched DogView
	if err := json.Unmarshal(rr.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if fetched.Profile.RoomNumber != 5 {
		t.Fatalf("expected room 5 got %d", fetched.Profile.RoomNumber)
	}

	rr = doRequest(mux, http.MethodDelete, "/v1/dogs/"+created.ID, nil, dogAdminClaims())
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(mux, http.MethodGet, "/v1/dogs/"+created.ID, nil, dogAdminClaims())
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateDogValidation(t *testing.T) {
	_, mux := newTestHandler(t, nil)

	req := DogProfileRequest{Name: "", RoomColor: "green", RoomNumber: 1, Size: "M"}
	rr := doRequest(mux, http.MethodPost, "/v1/dogs", req, dogAdminClaims())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}

	req = DogProfileRequest{Name: "Rex", RoomColor: "purple", RoomNumber: 1, Size: "M"}
	rr = doRequest(mux, http.MethodPost, "/v1/dogs", req, dogAdminClaims())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestBoardRoundSelection(t *testing.T) {
	_, mux := newTestHandler(t, seedRoster())

	rr := doRequest(mux, http.MethodPost, "/v1/dogs/dog-max/activities/walk/start", nil, writerClaims())
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(mux, http.MethodGet, "/v1/board", nil, writerClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var board BoardResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &board); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if board.Round != 1 {
		t.Fatalf("expected round 1 got %d", board.Round)
	}
	if len(board.Rows) != 1 {
		t.Fatalf("expected 1 row got %d", len(board.Rows))
	}
	if board.Rows[0].WalkStatus != "active" {
		t.Fatalf("expected active walk, got %q", board.Rows[0].WalkStatus)
	}
	if board.Rows[0].IndoorStatus != "idle" {
		t.Fatalf("expected idle indoor, got %q", board.Rows[0].IndoorStatus)
	}

	rr = doRequest(mux, http.MethodGet, "/v1/board?round=2", nil, writerClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &board); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if board.Rows[0].WalkStatus != "idle" {
		t.Fatalf("expected idle walk in round 2, got %q", board.Rows[0].WalkStatus)
	}

	rr = doRequest(mux, http.MethodGet, "/v1/board?round=4", nil, writerClaims())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSetBoardRound(t *testing.T) {
	handler, mux := newTestHandler(t, seedRoster())

	rr := doRequest(mux, http.MethodPut, "/v1/board/round", SetRoundRequest{Round: 3}, writerClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	if handler.service.CurrentRound() != 3 {
		t.Fatalf("expected round 3 got %d", handler.service.CurrentRound())
	}

	rr = doRequest(mux, http.MethodPut, "/v1/board/round", SetRoundRequest{Round: 0}, writerClaims())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func newTestHandler(t *testing.T, roster []domain.Dog) (*Handler, *http.ServeMux) {
	t.Helper()

	service := domain.NewService(&stubStore{roster: roster})
	if err := service.Load(context.Background()); err != nil {
		t.Fatalf("failed to load roster: %v", err)
	}

	handler := NewHandler(service)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return handler, mux
}

func seedRoster() []domain.Dog {
	return []domain.Dog{
		{
			ID: "dog-max",
			Profile: domain.DogProfile{
				Name:       "Max",
				Breed:      "Shiba Inu",
				RoomColor:  domain.RoomYellow,
				RoomNumber: 3,
				Size:       domain.SizeMedium,
			},
		},
	}
}

func writerClaims() *auth.Claims {
	return &auth.Claims{
		Subject: "tester",
		Scopes: map[string]struct{}{
			auth.ScopeActivitiesRead:  {},
			auth.ScopeActivitiesWrite: {},
		},
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func dogAdminClaims() *auth.Claims {
	return &auth.Claims{
		Subject: "tester",
		Scopes: map[string]struct{}{
			auth.ScopeActivitiesRead:  {},
			auth.ScopeActivitiesWrite: {},
			auth.ScopeDogsWrite:       {},
		},
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func doRequest(mux *http.ServeMux, method, target string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(auth.WithClaims(req.Context(), claims))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

type stubStore struct {
	roster []domain.Dog
}

func (s *stubStore) LoadRoster(ctx context.Context) ([]domain.Dog, error) {
	out := make([]domain.Dog, len(s.roster))
	copy(out, s.roster)
	return out, nil
}

func (s *stubStore) SaveLedger(ctx context.Context, dog domain.Dog, kind domain.ActivityKind, change domain.Change) error {
	return nil
}

func (s *stubStore) UpsertDog(ctx context.Context, dog domain.Dog) error {
	return nil
}

func (s *stubStore) DeleteDog(ctx context.Context, dogID string) error {
	return nil
}
