package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/lottery-agency-server/internal/lottery-server/draw"
)

// DrawSource estado do sorteio em memória (draw.Coordinator)
type DrawSource interface {
	Status() draw.Status
	Winners(agency int) (int, bool)
}

// WinnersReader leitura do cache de ganhadores (Redis)
type WinnersReader interface {
	GetWinners(ctx context.Context, agency int) (int, bool, error)
	Released(ctx context.Context) (bool, error)
}

// API expõe a consulta do sorteio na porta de métricas
type API struct {
	Draw  DrawSource
	Cache WinnersReader // opcional
}

// Winners resposta de /v1/agencies/{id}/winners
type Winners struct {
	Agency  int    `json:"agency"`
	Winners int    `json:"winners"`
	Source  string `json:"source"`
}

// Router retorna o roteador HTTP com os endpoints de consulta
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/draw", a.getDraw)                     // estado da barreira e resultados
	r.Get("/v1/agencies/{id}/winners", a.getWinners) // ganhadores de uma agência
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) getDraw(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Draw.Status())
}

// getWinners prefere o cache; sem cache (ou em falha) usa o coordenador
func (a *API) getWinners(w http.ResponseWriter, r *http.Request) {
	agency, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid agency id"})
		return
	}

	if a.Cache != nil {
		if n, ok, err := a.Cache.GetWinners(r.Context(), agency); err == nil && ok {
			writeJSON(w, http.StatusOK, Winners{Agency: agency, Winners: n, Source: "cache"})
			return
		}
	}

	if n, ok := a.Draw.Winners(agency); ok {
		writeJSON(w, http.StatusOK, Winners{Agency: agency, Winners: n, Source: "memory"})
		return
	}

	if !a.released(r.Context()) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "draw not released"})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

// released consulta o coordenador e, se houver cache, a marca lottery:draw:released
func (a *API) released(ctx context.Context) bool {
	if a.Draw.Status().Released {
		return true
	}
	if a.Cache == nil {
		return false
	}
	ok, err := a.Cache.Released(ctx)
	return err == nil && ok
}
