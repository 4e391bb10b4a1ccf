// Package api exposes HTTP handlers for the daycare service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/daycare/internal/auth"
	"example.com/daycare/internal/domain"
	"example.com/daycare/internal/persistence"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/dogs", h.dogs)
	mux.HandleFunc("/v1/dogs/", h.dogSubtree)
	mux.HandleFunc("/v1/board", h.board)
	mux.HandleFunc("/v1/board/round", h.boardRound)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) dogs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listDogs(w, r)
	case http.MethodPost:
		h.createDog(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// dogSubtree dispatches every path under /v1/dogs/{id}. The stdlib mux has no
// parameter matching, so the remainder is split by hand.
func (h *Handler) dogSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/dogs/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing dog id")
		return
	}
	dogID := parts[0]

	switch {
	case len(parts) == 1:
		h.dogByID(w, r, dogID)
	case len(parts) == 2 && parts[1] == "records":
		h.listRecords(w, r, dogID)
	case len(parts) == 3 && parts[1] == "records":
		h.recordByID(w, r, dogID, parts[2])
	case len(parts) == 4 && parts[1] == "activities":
		h.activityTransition(w, r, dogID, parts[2], parts[3])
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
	}
}

func (h *Handler) dogByID(w http.ResponseWriter, r *http.Request, dogID string) {
	switch r.Method {
	case http.MethodGet:
		h.getDog(w, r, dogID)
	case http.MethodPut:
		h.updateDog(w, r, dogID)
	case http.MethodDelete:
		h.deleteDog(w, r, dogID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) listDogs(w http.ResponseWriter, r *http.Request) {
	if !requireReadScope(w, r) {
		return
	}

	roster := h.service.Roster()
	items := make([]DogView, 0, len(roster))
	for _, dog := range roster {
		items = append(items, toDogView(dog))
	}
	writeJSON(w, http.StatusOK, ListDogsResponse{Items: items})
}

func (h *Handler) getDog(w http.ResponseWriter, r *http.Request, dogID string) {
	if !requireReadScope(w, r) {
		return
	}

	dog, ok := h.service.GetDog(dogID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "dog not found")
		return
	}
	writeJSON(w, http.StatusOK, toDogView(dog))
}

func (h *Handler) createDog(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeDogsWrite) {
		return
	}

	var req DogProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	dog, err := h.service.CreateDog(r.Context(), req.toProfile())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDogView(dog))
}

func (h *Handler) updateDog(w http.ResponseWriter, r *http.Request, dogID string) {
	if !requireScope(w, r, auth.ScopeDogsWrite) {
		return
	}

	var req DogProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	dog, err := h.service.UpdateDogProfile(r.Context(), dogID, req.toProfile())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDogView(dog))
}

func (h *Handler) deleteDog(w http.ResponseWriter, r *http.Request, dogID string) {
	if !requireScope(w, r, auth.ScopeDogsWrite) {
		return
	}

	if err := h.service.DeleteDog(r.Context(), dogID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// activityTransition serves POST /v1/dogs/{id}/activities/{kind}/{start|end}.
func (h *Handler) activityTransition(w http.ResponseWriter, r *http.Request, dogID, rawKind, transition string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !requireScope(w, r, auth.ScopeActivitiesWrite) {
		return
	}

	kind, err := domain.ParseActivityKind(rawKind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "unknown activity kind")
		return
	}

	var recordID string
	status := http.StatusOK
	switch transition {
	case "start":
		recordID, err = h.service.StartActivity(r.Context(), dogID, kind)
		status = http.StatusCreated
	case "end":
		recordID, err = h.service.EndActivity(r.Context(), dogID, kind)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, status, ActivityTransitionResponse{RecordID: recordID})
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request, dogID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !requireReadScope(w, r) {
		return
	}

	kind, err := domain.ParseActivityKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "unknown activity kind")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	dog, ok := h.service.GetDog(dogID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "dog not found")
		return
	}
	ledger, err := dog.Ledger(kind)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items, next := paginateRecords(ledger.Records, cursor, limit)
	writeJSON(w, http.StatusOK, ListRecordsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) recordByID(w http.ResponseWriter, r *http.Request, dogID, recordID string) {
	if !requireScope(w, r, auth.ScopeActivitiesWrite) {
		return
	}

	kind, err := domain.ParseActivityKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "unknown activity kind")
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.amendRecord(w, r, dogID, kind, recordID)
	case http.MethodDelete:
		if err := h.service.DeleteRecord(r.Context(), dogID, kind, recordID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) amendRecord(w http.ResponseWriter, r *http.Request, dogID string, kind domain.ActivityKind, recordID string) {
	var req AmendRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	update := domain.RecordUpdate{
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		PoopStatus: domain.PoopStatus(req.PoopStatus),
		PeeStatus:  domain.PeeStatus(req.PeeStatus),
		Notes:      req.Notes,
	}
	if err := h.service.UpdateRecord(r.Context(), dogID, kind, recordID, update); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) board(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !requireReadScope(w, r) {
		return
	}

	round := h.service.CurrentRound()
	if raw := r.URL.Query().Get("round"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "round must be an integer")
			return
		}
		round = parsed
	}

	rows, err := h.service.Board(round)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := BoardResponse{Round: round, Rows: make([]BoardRowView, 0, len(rows))}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, toBoardRowView(row))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) boardRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !requireScope(w, r, auth.ScopeActivitiesWrite) {
		return
	}

	var req SetRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := h.service.SetCurrentRound(req.Round); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SetRoundResponse{Round: req.Round})
}

// paginateRecords walks the chronological record slice past the cursor and
// returns the next page plus the cursor for the following one.
func paginateRecords(records []domain.ActivityRecord, cursor *persistence.Cursor, limit int) ([]domain.ActivityRecord, *persistence.Cursor) {
	start := 0
	if cursor != nil {
		for i, record := range records {
			if record.ID == cursor.ID {
				start = i + 1
				break
			}
		}
	}

	end := start + limit
	if end > len(records) {
		end = len(records)
	}

	items := make([]domain.ActivityRecord, end-start)
	copy(items, records[start:end])

	var next *persistence.Cursor
	if end < len(records) && len(items) > 0 {
		last := items[len(items)-1]
		next = &persistence.Cursor{StartTime: last.StartTime, ID: last.ID}
	}
	return items, next
}

func requireReadScope(w http.ResponseWriter, r *http.Request) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if !claims.HasScope(auth.ScopeActivitiesRead) && !claims.HasScope(auth.ScopeActivitiesWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope activities:read required")
		return false
	}
	return true
}

func requireScope(w http.ResponseWriter, r *http.Request, scope string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if !claims.HasScope(scope) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return false
	}
	return true
}

// writeDomainError maps domain sentinels to HTTP statuses. Sequencing
// violations surface as conflicts so the client can refresh and retry.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrDogNotFound):
		writeError(w, http.StatusNotFound, "not_found", "dog not found")
	case errors.Is(err, domain.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "not_found", "record not found")
	case errors.Is(err, domain.ErrAlreadyOpen):
		writeError(w, http.StatusConflict, "conflict", "a session of this kind is already in progress")
	case errors.Is(err, domain.ErrNothingOpen):
		writeError(w, http.StatusConflict, "conflict", "no session of this kind is in progress")
	case errors.Is(err, domain.ErrConflictingOpenRecord):
		writeError(w, http.StatusConflict, "conflict", "another record of this kind is already open")
	case errors.Is(err, domain.ErrUnknownActivityKind):
		writeError(w, http.StatusBadRequest, "validation_failed", "unknown activity kind")
	case errors.Is(err, domain.ErrInvalidRound):
		writeError(w, http.StatusBadRequest, "validation_failed", "round out of range")
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

// DogProfileRequest is the payload for creating or replacing a dog profile.
type DogProfileRequest struct {
	Name            string                `json:"name"`
	Breed           string                `json:"breed"`
	PhotoURL        string                `json:"photo_url"`
	RoomColor       string                `json:"room_color"`
	RoomNumber      int                   `json:"room_number"`
	IndoorSpace     string                `json:"indoor_space"`
	Size            string                `json:"size"`
	WalkingNotes    domain.WalkingNotes   `json:"walking_notes"`
	Food            domain.FoodInfo       `json:"food"`
	Medication      domain.MedicationInfo `json:"medication"`
	AdditionalNotes string                `json:"additional_notes"`
}

// Validate ensures request correctness.
func (r DogProfileRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	switch domain.RoomColor(r.RoomColor) {
	case domain.RoomYellow, domain.RoomGreen, domain.RoomBlue, domain.RoomRed:
	default:
		return errors.New("room_color must be one of yellow, green, blue, red")
	}
	if r.RoomNumber <= 0 {
		return errors.New("room_number must be > 0")
	}
	switch domain.DogSize(r.Size) {
	case domain.SizeSmall, domain.SizeMedium, domain.SizeLarge:
	default:
		return errors.New("size must be one of S, M, L")
	}
	return nil
}

func (r DogProfileRequest) toProfile() domain.DogProfile {
	return domain.DogProfile{
		Name:            r.Name,
		Breed:           r.Breed,
		PhotoURL:        r.PhotoURL,
		RoomColor:       domain.RoomColor(r.RoomColor),
		RoomNumber:      r.RoomNumber,
		IndoorSpace:     r.IndoorSpace,
		Size:            domain.DogSize(r.Size),
		WalkingNotes:    r.WalkingNotes,
		Food:            r.Food,
		Medication:      r.Medication,
		AdditionalNotes: r.AdditionalNotes,
	}
}

// AmendRecordRequest is the payload for PUT on a record. Every field replaces
// the stored value; a null end_time reopens the record.
type AmendRecordRequest struct {
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	PoopStatus string     `json:"poop_status"`
	PeeStatus  string     `json:"pee_status"`
	Notes      string     `json:"notes"`
}

// Validate ensures request correctness.
func (r AmendRecordRequest) Validate() error {
	if r.StartTime.IsZero() {
		return errors.New("start_time is required")
	}
	if r.EndTime != nil && r.EndTime.Before(r.StartTime) {
		return errors.New("end_time must not precede start_time")
	}
	switch domain.PoopStatus(r.PoopStatus) {
	case "", domain.PoopNormal, domain.PoopWatery, domain.PoopUnformed, domain.PoopNone:
	default:
		return errors.New("poop_status must be one of normal, watery, unformed, none")
	}
	switch domain.PeeStatus(r.PeeStatus) {
	case "", domain.PeeNormal, domain.PeeLittle, domain.PeeNone:
	default:
		return errors.New("pee_status must be one of normal, little, none")
	}
	return nil
}

// ActivityTransitionResponse carries the record touched by a start or end.
type ActivityTransitionResponse struct {
	RecordID string `json:"record_id"`
}

// SetRoundRequest selects the board round.
type SetRoundRequest struct {
	Round int `json:"round"`
}

// SetRoundResponse echoes the selected round.
type SetRoundResponse struct {
	Round int `json:"round"`
}

// DogView exposes a dog with both ledgers.
type DogView struct {
	ID      string                  `json:"id"`
	Profile domain.DogProfile       `json:"profile"`
	Walks   []domain.ActivityRecord `json:"walks"`
	Indoors []domain.ActivityRecord `json:"indoors"`
	OpenIDs OpenIDsView             `json:"open_ids"`
}

// OpenIDsView names the in-progress record per ledger, if any.
type OpenIDsView struct {
	Walk   string `json:"walk,omitempty"`
	Indoor string `json:"indoor,omitempty"`
}

// ListDogsResponse packages the roster in display order.
type ListDogsResponse struct {
	Items []DogView `json:"items"`
}

// ListRecordsResponse packages paginated record history.
type ListRecordsResponse struct {
	Items      []domain.ActivityRecord `json:"items"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}

// BoardRowView is one dog's slice of the round board.
type BoardRowView struct {
	DogID        string                 `json:"dog_id"`
	Name         string                 `json:"name"`
	RoomColor    string                 `json:"room_color"`
	RoomNumber   int                    `json:"room_number"`
	Size         string                 `json:"size"`
	WalkStatus   string                 `json:"walk_status"`
	WalkRecord   *domain.ActivityRecord `json:"walk_record,omitempty"`
	IndoorStatus string                 `json:"indoor_status"`
	IndoorRecord *domain.ActivityRecord `json:"indoor_record,omitempty"`
}

// BoardResponse is the full round view.
type BoardResponse struct {
	Round int            `json:"round"`
	Rows  []BoardRowView `json:"rows"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toDogView(dog domain.Dog) DogView {
	return DogView{
		ID:      dog.ID,
		Profile: dog.Profile,
		Walks:   dog.Walks.Records,
		Indoors: dog.Indoors.Records,
		OpenIDs: OpenIDsView{
			Walk:   dog.Walks.OpenID,
			Indoor: dog.Indoors.OpenID,
		},
	}
}

func toBoardRowView(row domain.BoardRow) BoardRowView {
	return BoardRowView{
		DogID:        row.DogID,
		Name:         row.Name,
		RoomColor:    string(row.RoomColor),
		RoomNumber:   row.RoomNumber,
		Size:         string(row.Size),
		WalkStatus:   string(row.WalkStatus),
		WalkRecord:   row.WalkRecord,
		IndoorStatus: string(row.IndoorStatus),
		IndoorRecord: row.IndoorRecord,
	}
}
