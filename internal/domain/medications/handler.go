package medications

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"med-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

const dateLayout = "2006-01-02"

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/medications", func(mr chi.Router) {
		mr.Post("/", createMedicationHandler(svc))
		mr.Get("/", listMedicationsHandler(svc))

		// Solo lectura: qué medicaciones ya están en fecha de aviso
		mr.Get("/due", listDueMedicationsHandler(svc))

		mr.Get("/{medID}", getMedicationHandler(svc))
		mr.Put("/{medID}", replaceMedicationHandler(svc))
		mr.Patch("/{medID}", patchMedicationHandler(svc))
		mr.Delete("/{medID}", deleteMedicationHandler(svc))
	})
}

// medicationRequest es el cuerpo para crear o reemplazar una medicación.
// reminder_date no se acepta: es derivado.
type medicationRequest struct {
	Name             string  `json:"name"`
	Dosage           float64 `json:"dosage"`
	Quantity         int     `json:"quantity" minimum:"0" maximum:"1000000"`
	Refills          int     `json:"refills" minimum:"0" maximum:"1000000"`
	TimesPerDay      int     `json:"times_per_day" minimum:"0" maximum:"1000000"`
	LastRefilled     string  `json:"last_refilled"` // YYYY-MM-DD, opcional (default hoy)
	ReminderLeadDays int     `json:"reminder_lead_days" minimum:"0" maximum:"1000000"`
}

// patchMedicationRequest: nil = no tocar.
type patchMedicationRequest struct {
	Name             *string  `json:"name"`
	Dosage           *float64 `json:"dosage"`
	Quantity         *int     `json:"quantity" minimum:"0" maximum:"1000000"`
	Refills          *int     `json:"refills" minimum:"0" maximum:"1000000"`
	TimesPerDay      *int     `json:"times_per_day" minimum:"0" maximum:"1000000"`
	LastRefilled     *string  `json:"last_refilled"`
	ReminderLeadDays *int     `json:"reminder_lead_days" minimum:"0" maximum:"1000000"`
}

// medicationResponse representa una medicación devuelta por la API.
type medicationResponse struct {
	ID               string    `json:"id"`
	OwnerUserID      string    `json:"owner_user_id"`
	Name             string    `json:"name"`
	Dosage           float64   `json:"dosage"`
	Quantity         int       `json:"quantity"`
	Refills          int       `json:"refills"`
	TimesPerDay      int       `json:"times_per_day"`
	LastRefilled     string    `json:"last_refilled"`
	ReminderLeadDays int       `json:"reminder_lead_days"`
	ReminderDate     *string   `json:"reminder_date"`
	QuantityLeft     int       `json:"quantity_left"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// createMedicationHandler godoc
// @Summary Registrar medicación
// @Description Crea una medicación para el usuario autenticado. La fecha de aviso se calcula a partir de cantidad, tomas por día y días de aviso.
// @Tags medications
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param payload body medicationRequest true "Datos de la medicación; last_refilled en formato YYYY-MM-DD"
// @Success 201 {object} medicationResponse
// @Failure 400 {string} string "invalid json / argumento inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 409 {string} string "medicación duplicada"
// @Failure 422 {string} string "insufficient supply"
// @Router /medications [post]
func createMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req medicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		p, err := req.params()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		m, err := svc.Create(r.Context(), userID, p)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toMedicationResponse(m, svc.now()))
	}
}

// listMedicationsHandler godoc
// @Summary Listar mis medicaciones
// @Tags medications
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Success 200 {array} medicationResponse
// @Failure 401 {string} string "unauthorized"
// @Router /medications [get]
func listMedicationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		items, err := svc.ListByOwner(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponses(items, svc.now()))
	}
}

// listDueMedicationsHandler godoc
// @Summary Medicaciones en fecha de aviso
// @Description Devuelve las medicaciones cuya fecha de aviso es anterior o igual a `on` (default hoy).
// @Tags medications
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param on query string false "Fecha YYYY-MM-DD"
// @Success 200 {array} medicationResponse
// @Failure 400 {string} string "on must be YYYY-MM-DD"
// @Failure 401 {string} string "unauthorized"
// @Router /medications/due [get]
func listDueMedicationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		day := svc.now()
		if v := strings.TrimSpace(r.URL.Query().Get("on")); v != "" {
			t, err := time.Parse(dateLayout, v)
			if err != nil {
				http.Error(w, "on must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			day = t
		}

		items, err := svc.ListDue(r.Context(), userID, day)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponses(items, day))
	}
}

// getMedicationHandler godoc
// @Summary Obtener medicación
// @Tags medications
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param medID path string true "ID de la medicación"
// @Success 200 {object} medicationResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "medication not found"
// @Router /medications/{medID} [get]
func getMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		m, err := svc.GetOwned(r.Context(), chi.URLParam(r, "medID"), userID)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m, svc.now()))
	}
}

// replaceMedicationHandler godoc
// @Summary Reemplazar medicación
// @Description Reemplaza todos los campos editables. El cambio es atómico: si la cantidad no alcanza para los días de aviso, no se aplica nada.
// @Tags medications
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param medID path string true "ID de la medicación"
// @Param payload body medicationRequest true "Datos de la medicación"
// @Success 200 {object} medicationResponse
// @Failure 400 {string} string "invalid json / argumento inválido"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "medication not found"
// @Failure 422 {string} string "insufficient supply"
// @Router /medications/{medID} [put]
func replaceMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req medicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		p, err := req.params()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		m, err := svc.Replace(r.Context(), chi.URLParam(r, "medID"), userID, p)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m, svc.now()))
	}
}

// patchMedicationHandler godoc
// @Summary Actualizar medicación parcialmente
// @Tags medications
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param medID path string true "ID de la medicación"
// @Param payload body patchMedicationRequest true "Campos a modificar"
// @Success 200 {object} medicationResponse
// @Failure 400 {string} string "invalid json / argumento inválido"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "medication not found"
// @Failure 422 {string} string "insufficient supply"
// @Router /medications/{medID} [patch]
func patchMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req patchMedicationRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := PatchInput{
			Name:             req.Name,
			Dosage:           req.Dosage,
			Quantity:         req.Quantity,
			Refills:          req.Refills,
			TimesPerDay:      req.TimesPerDay,
			ReminderLeadDays: req.ReminderLeadDays,
		}
		if req.LastRefilled != nil {
			t, err := time.Parse(dateLayout, strings.TrimSpace(*req.LastRefilled))
			if err != nil {
				http.Error(w, "last_refilled must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			in.LastRefilled = &t
		}

		m, err := svc.Patch(r.Context(), chi.URLParam(r, "medID"), userID, in)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m, svc.now()))
	}
}

// deleteMedicationHandler godoc
// @Summary Borrar medicación
// @Tags medications
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param medID path string true "ID de la medicación"
// @Success 200 {object} medicationResponse
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "medication not found"
// @Router /medications/{medID} [delete]
func deleteMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		m, err := svc.Delete(r.Context(), chi.URLParam(r, "medID"), userID)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m, svc.now()))
	}
}

func (req medicationRequest) params() (Params, error) {
	p := Params{
		Name:             req.Name,
		Dosage:           req.Dosage,
		Quantity:         req.Quantity,
		Refills:          req.Refills,
		TimesPerDay:      req.TimesPerDay,
		ReminderLeadDays: req.ReminderLeadDays,
	}
	if v := strings.TrimSpace(req.LastRefilled); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return Params{}, errors.New("last_refilled must be YYYY-MM-DD")
		}
		p.LastRefilled = t
	}
	return p, nil
}

func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInsufficientSupply):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrDuplicate):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "medication not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toMedicationResponse(m *Medication, asOf time.Time) medicationResponse {
	resp := medicationResponse{
		ID:               m.ID(),
		OwnerUserID:      m.OwnerUserID(),
		Name:             m.Name(),
		Dosage:           m.Dosage(),
		Quantity:         m.Quantity(),
		Refills:          m.Refills(),
		TimesPerDay:      m.TimesPerDay(),
		LastRefilled:     m.LastRefilled().Format(dateLayout),
		ReminderLeadDays: m.ReminderLeadDays(),
		QuantityLeft:     m.QuantityLeft(asOf),
		CreatedAt:        m.CreatedAt(),
		UpdatedAt:        m.UpdatedAt(),
	}
	if rd, ok := m.ReminderDate(); ok {
		s := rd.Format(dateLayout)
		resp.ReminderDate = &s
	}
	return resp
}

func toMedicationResponses(items []*Medication, asOf time.Time) []medicationResponse {
	out := make([]medicationResponse, 0, len(items))
	for _, m := range items {
		out = append(out, toMedicationResponse(m, asOf))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
